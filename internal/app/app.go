package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/jun/coursecast/internal/auth"
	"github.com/jun/coursecast/internal/config"
	"github.com/jun/coursecast/internal/crypto"
	"github.com/jun/coursecast/internal/handler"
	"github.com/jun/coursecast/internal/markdown"
	"github.com/jun/coursecast/internal/media"
	"github.com/jun/coursecast/internal/notify"
	"github.com/jun/coursecast/internal/secret"
	"github.com/jun/coursecast/internal/session"
	"github.com/jun/coursecast/internal/token"
	"github.com/jun/coursecast/internal/upload"
	"github.com/jun/coursecast/internal/youtube"
)

// App holds the dependencies for the Lambda function.
type App struct {
	youtubeHandler   *handler.YouTubeHandler
	uploadHandler    *handler.UploadHandler
	uploads          *upload.Service
	apiGatewaySecret string
	frontendURL      string
	devMode          bool
}

// NewApp initializes the application dependencies.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	// ---------- Secret Resolver ----------
	var resolver secret.Resolver
	if cfg.DevMode {
		resolver = secret.NewEnvResolver()
		log.Info().Msg("Using EnvResolver (DEV_MODE=true)")
	} else {
		resolver = secret.NewCachingResolver(secret.NewSSMResolver(ssm.NewFromConfig(awsCfg)))
	}

	googleClientSecret, err := secret.Lookup(ctx, resolver, cfg.GoogleClientSecretParam, "")
	if err != nil {
		log.Warn().Err(err).Msg("Failed to resolve Google client secret")
	}
	jwtSecret, err := secret.Lookup(ctx, resolver, cfg.JWTSecretParam, "default-dev-secret")
	if err != nil {
		log.Warn().Err(err).Msg("Failed to resolve JWT secret")
	}
	apiGatewaySecret, err := secret.Lookup(ctx, resolver, cfg.APIGatewaySecretParam, "")
	if err != nil && !cfg.DevMode {
		log.Warn().Err(err).Msg("Failed to resolve API gateway secret")
	}

	// ---------- Stores ----------
	var encrypt crypto.Encryptor
	if cfg.DevMode {
		encrypt = crypto.NewDevEncryptor()
		log.Info().Msg("Using DevEncryptor (DEV_MODE=true)")
	} else {
		encrypt = crypto.NewKMSService(kms.NewFromConfig(awsCfg), cfg.KMSKeyID, "youtube-token")
	}

	var (
		tokens *token.ExpiringStore
		nonces session.NonceStore
		jobs   *upload.JobStore
		source media.Source
	)
	if cfg.InMemoryStores {
		tokens = token.NewStore(token.NewMemoryBackend())
		nonces = session.NewMemoryNonceStore()
		jobs = upload.NewJobStore(nil, cfg.JobsTable)
		log.Info().Msg("Using in-memory token, nonce and job stores")
	} else {
		// DynamoDB, or LocalStack when AWS_ENDPOINT_URL is set
		dynamoClient := dynamodb.NewFromConfig(awsCfg)
		tokens = token.NewStore(token.NewDynamoBackend(dynamoClient, cfg.TokensTable, encrypt))
		nonces = session.NewNonceManager(dynamoClient, cfg.NoncesTable)
		jobs = upload.NewJobStore(dynamoClient, cfg.JobsTable)
	}

	if cfg.MediaBucket != "" {
		source = media.NewS3Source(s3.NewFromConfig(awsCfg), cfg.MediaBucket)
	} else {
		source = media.NewLocalSource(cfg.MediaDir)
		log.Info().Str("dir", cfg.MediaDir).Msg("Serving videos from local directory")
	}

	// ---------- Services ----------
	authService := auth.NewService(
		auth.NewOAuthConfig(cfg.GoogleClientID, googleClientSecret, cfg.GoogleRedirectURL),
		nonces,
		tokens,
	)

	ytOpts := []youtube.Option{
		youtube.WithUploadURL(cfg.YouTubeUploadURL),
		youtube.WithWatchURL(cfg.YouTubeWatchURL),
		youtube.WithConstraints(cfg.Constraints()),
	}
	if cfg.YouTubeAPIURL != "" {
		ytOpts = append(ytOpts, youtube.WithAPIBaseURL(cfg.YouTubeAPIURL))
	}
	ytClient := youtube.NewClient(ytOpts...)

	var notifier upload.Notifier
	if cfg.BackendURL != "" {
		notifier = notify.NewNotifier(cfg.BackendURL, []byte(jwtSecret), nil)
	}

	renderer := markdown.NewRenderer()
	uploads := upload.NewService(authService, ytClient, source, jobs, notifier, renderer)

	return &App{
		youtubeHandler:   handler.NewYouTubeHandler(authService, ytClient, jwtSecret, cfg.FrontendURL),
		uploadHandler:    handler.NewUploadHandler(uploads, renderer, jwtSecret, cfg.AsyncUploads),
		uploads:          uploads,
		apiGatewaySecret: apiGatewaySecret,
		frontendURL:      cfg.FrontendURL,
		devMode:          cfg.DevMode,
	}, nil
}

// Wait blocks until background uploads have finished.
func (app *App) Wait() {
	app.uploads.Wait()
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := req.Path
	method := req.HTTPMethod

	log.Debug().Str("method", method).Str("path", path).Msg("Request")

	// CORS Preflight
	if method == "OPTIONS" {
		return app.corsResponse(events.APIGatewayProxyResponse{StatusCode: 204}), nil
	}

	// Requests must come through CloudFront outside DEV_MODE
	if !app.devMode {
		if req.Headers["X-Origin-Verify"] != app.apiGatewaySecret && req.Headers["x-origin-verify"] != app.apiGatewaySecret {
			log.Warn().Str("path", path).Msg("Security Block: Missing or invalid X-Origin-Verify header")
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusForbidden,
				Body:       "Forbidden: Access denied",
			}, nil
		}
	}

	// Strip /api prefix if present (for CloudFront proxying)
	path = strings.TrimPrefix(path, "/api")

	if req.PathParameters == nil {
		req.PathParameters = make(map[string]string)
	}

	// /youtube
	if strings.HasPrefix(path, "/youtube/") {
		switch {
		case path == "/youtube/connect" && method == "GET":
			return app.corsResponse(must(app.youtubeHandler.Connect(ctx, req))), nil
		case path == "/youtube/callback" && method == "GET":
			return app.corsResponse(must(app.youtubeHandler.Callback(ctx, req))), nil
		case path == "/youtube/status" && method == "GET":
			return app.corsResponse(must(app.youtubeHandler.Status(ctx, req))), nil
		case path == "/youtube/disconnect" && method == "POST":
			return app.corsResponse(must(app.youtubeHandler.Disconnect(ctx, req))), nil
		}
	}

	// /uploads
	if path == "/uploads" && method == "POST" {
		return app.corsResponse(must(app.uploadHandler.CreateUpload(ctx, req))), nil
	}
	if path == "/uploads/preview" && method == "POST" {
		return app.corsResponse(must(app.uploadHandler.PreviewDescription(ctx, req))), nil
	}
	if strings.HasPrefix(path, "/uploads/") && method == "GET" {
		id := strings.Trim(strings.TrimPrefix(path, "/uploads/"), "/")
		if id != "" && !strings.Contains(id, "/") {
			req.PathParameters["id"] = id
			return app.corsResponse(must(app.uploadHandler.GetUpload(ctx, req))), nil
		}
	}

	return app.corsResponse(events.APIGatewayProxyResponse{
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf("Not Found: %s %s", method, path),
	}), nil
}

// corsResponse adds CORS headers to an API Gateway response.
func (app *App) corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = app.frontendURL
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization"
	return resp
}

// must unwraps a handler response, logging the error.
func must(resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
	if err != nil {
		log.Error().Err(err).Msg("Handler error")
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}
	return resp
}
