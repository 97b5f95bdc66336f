package cli

import (
	"bufio"
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/secdrive/internal/client/client"
	"github.com/dmitrijs2005/secdrive/internal/client/config"
	"github.com/dmitrijs2005/secdrive/internal/client/services"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type fileOps interface {
	Upload(ctx context.Context, path string) (string, error)
	Download(ctx context.Context, fileID, dir string) (string, error)
	List(ctx context.Context) ([]client.File, error)
	Delete(ctx context.Context, fileID string) error
}

type profileOps interface {
	Ping(ctx context.Context) error
	Register(ctx context.Context, p client.Profile) error
	UpdateProfile(ctx context.Context, upd client.ProfileUpdate) error
	GetProfile(ctx context.Context, userID string) (*client.Profile, error)
}

type App struct {
	config  *config.Config
	api     profileOps
	files   fileOps
	newFile func(userID string) fileOps
	userID  string
	reader  *bufio.Reader
	out     io.Writer

	mu   sync.Mutex
	mode Mode
}

func NewApp(c *config.Config) *App {
	api := client.New(c.ServerURL, c.Token, &http.Client{Timeout: c.RequestTimeout})

	a := &App{
		config: c,
		api:    api,
		newFile: func(userID string) fileOps {
			return services.NewFileService(api, api.HTTPClient(), userID)
		},
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
	a.setUser(c.UserID)
	return a
}

func (a *App) setUser(userID string) {
	a.userID = userID
	a.files = nil
	if userID != "" {
		a.files = a.newFile(userID)
	}
}

func (a *App) hasUser() bool {
	return a.userID != ""
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode != mode {
		a.mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) Run(ctx context.Context) {
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	log.Println("Welcome to secdrive CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

// StartOnlineStatusWatcher polls the server's liveness endpoint every
// interval and flips Mode accordingly.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.api.Ping(pctx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) getStatus() string {
	s := a.userID
	if m := a.Mode(); m != "" {
		if s != "" {
			s += " "
		}
		s += string(m)
	}
	if s != "" {
		s = "(" + s + ")"
	}
	return s
}
