package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"claimlens/internal/config"
	"claimlens/internal/sources/google"
)

var (
	authPort      string
	authTokenFile string
	authTimeout   time.Duration
)

var sheetsAuthCmd = &cobra.Command{
	Use:   "sheets-auth",
	Short: "Authorize read access to Google Sheets with a user account",
	Long: `Run the OAuth consent flow for the sheets backend and save the token.

The OAuth client comes from GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE
and must allow the redirect URI http://localhost:<port>/callback. Point
GOOGLE_OAUTH_TOKEN_FILE at the saved token to use it.`,
	Run: runSheetsAuth,
}

func init() {
	sheetsAuthCmd.Flags().StringVar(&authPort, "port", "8085", "Local port for the OAuth redirect")
	sheetsAuthCmd.Flags().StringVar(&authTokenFile, "token", "", "Token output file (default: GOOGLE_OAUTH_TOKEN_FILE or token.json)")
	sheetsAuthCmd.Flags().DurationVar(&authTimeout, "timeout", 5*time.Minute, "How long to wait for authorization")
	rootCmd.AddCommand(sheetsAuthCmd)
}

func runSheetsAuth(cmd *cobra.Command, args []string) {
	cfg := config.Load()

	outFile := authTokenFile
	if outFile == "" {
		outFile = cfg.GoogleOAuthTokenFile
	}
	if outFile == "" {
		outFile = "token.json"
	}

	clientJSON, err := google.ReadOAuthClient(cfg.GoogleOAuthClientJSON, cfg.GoogleOAuthClientFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	oc, err := google.OAuthConfig(clientJSON, "http://localhost:"+authPort+"/callback")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := newContext()
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, authTimeout)
	defer cancelTimeout()

	tok, err := authorize(ctx, oc, authPort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := google.SaveToken(outFile, tok); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Saved token to %s\n", outFile)
}

// authorize prints the consent URL and waits for the redirect on port.
func authorize(ctx context.Context, oc *oauth2.Config, port string) (*oauth2.Token, error) {
	state := uuid.NewString()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errStr := q.Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("authorization denied: %s", errStr):
			default:
			}
			return
		}
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- q.Get("code"):
		default:
		}
	})

	srv := &http.Server{Addr: "localhost:" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("redirect listener: %w", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Open this URL to authorize:\n%s\n", oc.AuthCodeURL(state, oauth2.AccessTypeOffline))

	select {
	case code := <-codeCh:
		tok, err := oc.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.New("authorization timed out")
		}
		return nil, errors.New("interrupted")
	}
}
