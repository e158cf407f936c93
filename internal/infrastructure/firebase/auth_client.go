package firebase

import (
	"context"

	fbapp "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// NewApp initializes the Firebase app from the configured project and
// credentials.
func NewApp(ctx context.Context, projectID string, opts ...option.ClientOption) (*fbapp.App, error) {
	return fbapp.NewApp(ctx, &fbapp.Config{ProjectID: projectID}, opts...)
}

// VerifyToken checks a Firebase ID token and returns the user id it carries.
func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}

	return result.UID, nil
}
