package auth

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Session is an authorized Gmail session. HTTP carries the credentials on
// every request it sends.
type Session struct {
	HTTP  *http.Client
	Email string
}

// Provider yields an authorized session, running an interactive consent flow
// when no valid cached token exists.
type Provider interface {
	Session(ctx context.Context) (*Session, error)
}

// FileProvider authenticates with OAuth client credentials and a token cache
// stored as JSON files in ConfigDir:
//   - client_secret.json, the OAuth client downloaded from the cloud console
//   - token.json, the cached user token
//
// Scopes: gmail.readonly and gmail.modify (for archive/trash). When user
// interaction is needed, the consent URL is sent on UIEvents and a pasted
// code or redirect URL is read from UserResponses; with nil channels the
// prompt goes to the terminal instead.
type FileProvider struct {
	ConfigDir     string
	UIEvents      chan<- interface{}
	UserResponses <-chan string
}

func (p *FileProvider) Session(ctx context.Context) (*Session, error) {
	credPath := filepath.Join(p.ConfigDir, "client_secret.json")
	b, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials at %s: %w", credPath, err)
	}

	cfg, err := google.ConfigFromJSON(b,
		gmailv1.GmailReadonlyScope,
		gmailv1.GmailModifyScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parse oauth config: %w", err)
	}

	tokFile := filepath.Join(p.ConfigDir, "token.json")
	if tok, err := readToken(tokFile); err == nil {
		// Validate the cached token by making a lightweight API call.
		client := cfg.Client(ctx, tok)
		if email, err := validate(ctx, client); err == nil {
			return &Session{HTTP: client, Email: email}, nil
		}
		// Token is invalid or expired. Remove it and fall through to re-auth.
		os.Remove(tokFile)
	}

	tok, err := p.tokenFromWeb(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := saveToken(tokFile, tok); err != nil {
		return nil, err
	}

	client := cfg.Client(ctx, tok)
	email, err := validate(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("verify new session: %w", err)
	}
	return &Session{HTTP: client, Email: email}, nil
}

func validate(ctx context.Context, client *http.Client) (string, error) {
	svc, err := gmailv1.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", err
	}
	profile, err := svc.Users.GetProfile("me").Do()
	if err != nil {
		return "", err
	}
	return profile.EmailAddress, nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return err
	}
	f.Close()
	return os.Rename(tmp, path)
}

func (p *FileProvider) tokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	if p.UIEvents != nil && p.UserResponses != nil {
		return p.tokenFromWebInteractive(ctx, cfg)
	}
	return tokenFromWebCLI(ctx, cfg)
}

// loopback is a throwaway HTTP server on a random localhost port that
// captures the OAuth redirect.
type loopback struct {
	srv      *http.Server
	redirect string
	codes    chan string
}

func startLoopback() (*loopback, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen on loopback: %w", err)
	}
	lb := &loopback{
		redirect: fmt.Sprintf("http://127.0.0.1:%d/", ln.Addr().(*net.TCPAddr).Port),
		codes:    make(chan string, 1),
	}
	mux := http.NewServeMux()
	lb.srv = &http.Server{
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           mux,
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Missing 'code' parameter", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Authentication complete. You can close this window.")
		select {
		case lb.codes <- code:
		default:
		}
		go func() { _ = lb.srv.Shutdown(context.Background()) }()
	})
	go func() { _ = lb.srv.Serve(ln) }()
	return lb, nil
}

func (lb *loopback) shutdown() {
	_ = lb.srv.Shutdown(context.Background())
}

// tokenFromWebInteractive runs the consent flow through the UI channels,
// capturing the code via the loopback redirect or a manual paste, whichever
// arrives first.
func (p *FileProvider) tokenFromWebInteractive(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	lb, err := startLoopback()
	if err != nil {
		return nil, err
	}
	oldRedirect := cfg.RedirectURL
	cfg.RedirectURL = lb.redirect
	defer func() { cfg.RedirectURL = oldRedirect }()

	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	p.UIEvents <- authURL

	select {
	case <-ctx.Done():
		lb.shutdown()
		return nil, ctx.Err()
	case code := <-lb.codes:
		return exchange(ctx, cfg, code)
	case input := <-p.UserResponses:
		lb.shutdown()
		code, err := codeFromInput(input)
		if err != nil {
			return nil, err
		}
		return exchange(ctx, cfg, code)
	}
}

// tokenFromWebCLI runs the consent flow against the terminal: loopback
// redirect first, manual paste after a timeout.
func tokenFromWebCLI(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	if lb, err := startLoopback(); err == nil {
		oldRedirect := cfg.RedirectURL
		cfg.RedirectURL = lb.redirect

		authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
		fmt.Fprintln(os.Stderr, "A browser window will open. If it does not, copy this URL:")
		fmt.Fprintln(os.Stderr, authURL)
		fmt.Fprintf(os.Stderr, "Waiting for redirect on %s …\n", lb.redirect)

		select {
		case <-ctx.Done():
			lb.shutdown()
			cfg.RedirectURL = oldRedirect
			return nil, ctx.Err()
		case code := <-lb.codes:
			fmt.Fprintln(os.Stderr, "Exchanging code for token…")
			tok, err := exchange(ctx, cfg, code)
			// Restore redirect only after the exchange to avoid invalid_grant.
			cfg.RedirectURL = oldRedirect
			if err != nil {
				return nil, err
			}
			fmt.Fprintln(os.Stderr, "Authentication successful.")
			return tok, nil
		case <-time.After(120 * time.Second):
			lb.shutdown()
			cfg.RedirectURL = oldRedirect
			fmt.Fprintln(os.Stderr, "Timeout waiting for redirect; falling back to manual paste.")
		}
	}

	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintln(os.Stderr, "Open this URL in your browser to authorize Mailsweep:")
	fmt.Fprintln(os.Stderr, authURL)
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Paste the AUTH CODE itself or the FULL redirect URL here, then press Enter.")
	fmt.Fprint(os.Stderr, "> ")

	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 0, 1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read auth code: %w", err)
		}
		return nil, errors.New("empty authorization code")
	}
	code, err := codeFromInput(sc.Text())
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(os.Stderr, "Exchanging code for token…")
	tok, err := exchange(ctx, cfg, code)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(os.Stderr, "Authentication successful.")
	return tok, nil
}

// codeFromInput accepts either a bare authorization code or the full redirect
// URL the browser landed on.
func codeFromInput(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("empty authorization code")
	}
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		u, err := url.Parse(input)
		if err != nil {
			return "", fmt.Errorf("parse redirect URL: %w", err)
		}
		c := u.Query().Get("code")
		if c == "" {
			return "", errors.New("no 'code' parameter found in pasted URL")
		}
		return c, nil
	}
	return input, nil
}

func exchange(ctx context.Context, cfg *oauth2.Config, code string) (*oauth2.Token, error) {
	tok, err := cfg.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	return tok, nil
}
