// Package services contains the server-side business logic behind the HTTP
// handlers: the upload confirmation and deletion coordinator (FileService)
// and user profiles (UserService).
package services

import (
	"context"
	"time"
)

// withTimeout bounds a single external call; a non-positive d leaves ctx as is.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
