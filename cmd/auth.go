package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/plsync/internal/formatter"
	"github.com/desertthunder/plsync/internal/server"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// loginTimeout bounds how long [Runner.AuthLogin] waits for the browser callback.
const loginTimeout = 2 * time.Minute

// AuthLogin runs the authorization code flow and saves the new session id to the config.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	sessionID := shared.GenerateID()
	result, err := r.doOAuth(ctx, sessionID)
	if err != nil {
		return err
	}

	r.config.Session.ID = result.SessionID
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		r.logger.Warn("failed to save session id to config", "error", err)
		r.writePlain("Session stored but not saved to %s; pass --session %s\n", r.configPath, result.SessionID)
	}

	r.logger.Info("authorization successful", "session", shared.ShortID(result.SessionID))
	r.writePlain("✓ Authorized, session %s\n", result.SessionID)
	return nil
}

// AuthStatus shows the user behind the current session, refreshing the token if needed.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	sessionID, err := r.sessionID()
	if err != nil {
		return err
	}

	engine, err := r.syncEngine(ctx)
	if err != nil {
		return err
	}

	user, err := engine.CurrentUser(ctx, sessionID)
	if err != nil {
		return err
	}

	cred, err := r.store.Get(ctx, sessionID)
	if err != nil {
		r.logger.Debug("failed to read stored credential", "error", err)
	}

	formatter.WriteUser(r.output, user, sessionID, cred, time.Now())
	return nil
}

// AuthLogout deletes the current session record and clears it from the config.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	sessionID, err := r.sessionID()
	if err != nil {
		return err
	}

	store, err := r.sessionStore(ctx)
	if err != nil {
		return err
	}

	if err := store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	r.config.Session.ID = ""
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		r.logger.Warn("failed to clear session id in config", "error", err)
	}

	return r.writePlain("✓ Logged out of session %s\n", shared.ShortID(sessionID))
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, sessionID string) (*server.OAuthResult, error) {
	issuer, err := r.tokenIssuer()
	if err != nil {
		return nil, err
	}

	store, err := r.sessionStore(ctx)
	if err != nil {
		return nil, err
	}

	state := shared.GenerateID()
	oauthHandler := server.NewOAuthHandler(issuer, store, sessionID, state, callbackPath(r.config.Credentials.Spotify.RedirectURI))

	var router server.Router = server.NewBasicRouter()
	router.Use(server.Recoverer(r.logger), server.RequestLogger(r.logger))
	router.Handler(oauthHandler)

	serverAddr := r.config.Server.Addr()
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := issuer.AuthURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlain("⚠ Could not open browser automatically.\n")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", loginTimeout)

	timeout := time.NewTimer(loginTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, loginTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	return &result, nil
}

// callbackPath returns the path component of the redirect uri.
func callbackPath(redirectURI string) string {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Path == "" || u.Path == "/" {
		return server.DefaultCallbackPath
	}
	return u.Path
}
