// Command upload sends a lecture recording from the local disk to YouTube.
//
// On first use it prints a Google authorization URL and waits on the
// redirect URI for the browser to come back. The token is kept under
// -token-dir until it expires.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jun/coursecast/internal/auth"
	"github.com/jun/coursecast/internal/config"
	"github.com/jun/coursecast/internal/logging"
	"github.com/jun/coursecast/internal/markdown"
	"github.com/jun/coursecast/internal/media"
	"github.com/jun/coursecast/internal/model"
	"github.com/jun/coursecast/internal/notify"
	"github.com/jun/coursecast/internal/secret"
	"github.com/jun/coursecast/internal/session"
	"github.com/jun/coursecast/internal/token"
	"github.com/jun/coursecast/internal/upload"
	"github.com/jun/coursecast/internal/youtube"
)

// localUser keys the single token the CLI stores.
const localUser = "local"

type options struct {
	file        string
	title       string
	description string
	tags        string
	category    string
	privacy     string
	contentID   string
	markdown    bool
	madeForKids bool
	tokenDir    string
	redirectURL string
}

func parseFlags() options {
	var o options
	configDir, _ := os.UserConfigDir()

	flag.StringVar(&o.file, "file", "", "video file to upload (required)")
	flag.StringVar(&o.title, "title", "", "video title (defaults to the file name)")
	flag.StringVar(&o.description, "description", "", "video description")
	flag.StringVar(&o.tags, "tags", "", "comma separated tags")
	flag.StringVar(&o.category, "category", upload.DefaultCategoryID, "YouTube category id")
	flag.StringVar(&o.privacy, "privacy", upload.DefaultPrivacyStatus, "private, unlisted or public")
	flag.StringVar(&o.contentID, "content-id", "", "content record to attach the video to")
	flag.BoolVar(&o.markdown, "markdown", false, "description is Markdown and is flattened to text")
	flag.BoolVar(&o.madeForKids, "made-for-kids", false, "declare the video as made for kids")
	flag.StringVar(&o.tokenDir, "token-dir", filepath.Join(configDir, "coursecast"), "directory holding the YouTube token")
	flag.StringVar(&o.redirectURL, "redirect-url", "http://127.0.0.1:8085/youtube/callback", "OAuth redirect URI registered for the CLI")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()
	if opts.file == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Setup(cfg.LogLevel, true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, opts); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	resolver := secret.NewEnvResolver()
	clientSecret, err := resolver.GetSecret(ctx, cfg.GoogleClientSecretParam)
	if err != nil {
		return fmt.Errorf("google client secret: %w", err)
	}

	tokens := token.NewStore(token.NewFileBackend(opts.tokenDir))
	authService := auth.NewService(
		auth.NewOAuthConfig(cfg.GoogleClientID, clientSecret, opts.redirectURL),
		session.NewMemoryNonceStore(),
		tokens,
	)

	if _, err := authService.Token(ctx, localUser); errors.Is(err, auth.ErrNotAuthenticated) {
		if err := authorize(ctx, authService, opts.redirectURL); err != nil {
			return err
		}
	}

	abs, err := filepath.Abs(opts.file)
	if err != nil {
		return err
	}

	ytOpts := []youtube.Option{
		youtube.WithUploadURL(cfg.YouTubeUploadURL),
		youtube.WithWatchURL(cfg.YouTubeWatchURL),
		youtube.WithConstraints(cfg.Constraints()),
	}

	var notifier upload.Notifier
	if cfg.BackendURL != "" && opts.contentID != "" {
		jwtSecret, err := resolver.GetSecret(ctx, cfg.JWTSecretParam)
		if err != nil {
			return fmt.Errorf("backend notification needs the JWT secret: %w", err)
		}
		notifier = notify.NewNotifier(cfg.BackendURL, []byte(jwtSecret), nil)
	}

	uploads := upload.NewService(
		authService,
		youtube.NewClient(ytOpts...),
		media.NewLocalSource(filepath.Dir(abs)),
		upload.NewJobStore(nil, ""),
		notifier,
		markdown.NewRenderer(),
	)

	req := upload.Request{
		ContentRecordID: opts.contentID,
		SourceKey:       filepath.Base(abs),
		Metadata: model.VideoMetadata{
			Title:         opts.title,
			Description:   opts.description,
			Tags:          splitTags(opts.tags),
			CategoryID:    opts.category,
			PrivacyStatus: opts.privacy,
			MadeForKids:   opts.madeForKids,
		},
		OnProgress: func(p int) {
			fmt.Fprintf(os.Stderr, "\rUploading: %d%%", p)
		},
	}
	if opts.markdown {
		req.DescriptionFormat = upload.DescriptionMarkdown
	}

	job, err := uploads.UploadVideo(ctx, localUser, req)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	fmt.Println(job.Video.VideoURL)
	return nil
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// authorize runs the consent flow: the user opens the printed URL and
// Google redirects the browser to a listener on redirectURL.
func authorize(ctx context.Context, authService *auth.Service, redirectURL string) error {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return fmt.Errorf("invalid redirect URL: %w", err)
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", u.Host, err)
	}

	authURL, err := authService.BeginAuthorization(ctx, localUser)
	if err != nil {
		ln.Close()
		return err
	}

	done := make(chan error, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(u.Path, func(w http.ResponseWriter, r *http.Request) {
		_, err := authService.CompleteAuthorization(r.Context(), localUser, r.URL)
		if err != nil {
			http.Error(w, "Authorization failed: "+err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "YouTube account connected. You can close this window.")
		}
		select {
		case done <- err:
		default:
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go srv.Serve(ln)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(os.Stderr, "Open this URL in your browser to connect YouTube:\n\n  %s\n\n", authURL)

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
