package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

type Config struct {
	ProjectID       string
	CredentialsFile string
}

// App holds the clients created from one Firebase app.
type App struct {
	Firestore *firestore.Client
	Auth      *auth.Client
}

// New creates the Firebase app. Firestore and Auth are created only when asked for.
func New(ctx context.Context, cfg Config, withFirestore, withAuth bool) (*App, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var fbConfig *fb.Config
	if cfg.ProjectID != "" {
		fbConfig = &fb.Config{ProjectID: cfg.ProjectID}
	}

	app, err := fb.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}

	out := &App{}
	if withFirestore {
		out.Firestore, err = app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firestore client: %w", err)
		}
	}
	if withAuth {
		out.Auth, err = app.Auth(ctx)
		if err != nil {
			out.Close()
			return nil, fmt.Errorf("auth client: %w", err)
		}
	}
	return out, nil
}

func (a *App) Close() error {
	if a.Firestore != nil {
		return a.Firestore.Close()
	}
	return nil
}
