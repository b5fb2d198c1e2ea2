package services

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// InitFirebase initializes the Firebase Admin SDK and returns the auth client used
// to issue and verify operator session cookies
func InitFirebase(ctx context.Context, credPath string) (*auth.Client, error) {
	if credPath == "" {
		return nil, fmt.Errorf("firebase credentials path not set")
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credPath))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	return app.Auth(ctx)
}
