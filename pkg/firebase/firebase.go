package firebase

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/storage"
	"google.golang.org/api/option"
)

// App holds the initialized Firebase app and storage client
type App struct {
	FirebaseApp   *firebase.App
	StorageClient *storage.Client
}

// InitFirebase initializes the Firebase application and its Cloud
// Storage client for image uploads
func InitFirebase(ctx context.Context, credentialsPath, storageBucket string) (*App, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("Firebase credentials path not provided")
	}

	// Check if the credentials file exists
	if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("Firebase credentials file not found at %s", credentialsPath)
	}

	opt := option.WithCredentialsFile(credentialsPath)

	firebaseApp, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: storageBucket}, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	storageClient, err := firebaseApp.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase storage client: %w", err)
	}

	log.Println("Firebase app and storage client initialized successfully!")
	return &App{FirebaseApp: firebaseApp, StorageClient: storageClient}, nil
}

// BucketUploader uploads objects to the app's default storage bucket
type BucketUploader struct {
	bucket     *gcs.BucketHandle
	bucketName string
}

// NewUploader returns an uploader bound to the default bucket
func (a *App) NewUploader(ctx context.Context, bucketName string) (*BucketUploader, error) {
	bucket, err := a.StorageClient.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("error getting default storage bucket: %w", err)
	}
	return &BucketUploader{bucket: bucket, bucketName: bucketName}, nil
}

// Upload stores one object and returns its public URL
func (u *BucketUploader) Upload(ctx context.Context, name string, content io.Reader) (string, error) {
	w := u.bucket.Object(name).NewWriter(ctx)
	if _, err := io.Copy(w, content); err != nil {
		w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucketName, name), nil
}

// Delete removes one uploaded object
func (u *BucketUploader) Delete(ctx context.Context, name string) error {
	return u.bucket.Object(name).Delete(ctx)
}
