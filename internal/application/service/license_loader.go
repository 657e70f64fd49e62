package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	domainService "github.com/turtacn/cle/internal/domain/service"
	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/errors"
	"github.com/turtacn/cle/pkg/logger"
)

// DirectoryTokenProvider reads license token files from a directory. Only
// files carrying the license extension are considered; a missing or empty
// directory yields no tokens and no error.
// DirectoryTokenProvider 从目录读取许可令牌文件。仅考虑携带许可扩展名的文件；
// 目录缺失或为空时不产生令牌也不产生错误。
type DirectoryTokenProvider struct {
	dir string
	log logger.Logger
}

var _ domainService.TokenProvider = (*DirectoryTokenProvider)(nil)

// NewDirectoryTokenProvider creates a provider over the given directory.
func NewDirectoryTokenProvider(dir string, log logger.Logger) *DirectoryTokenProvider {
	return &DirectoryTokenProvider{
		dir: dir,
		log: log.WithComponent("license_directory"),
	}
}

// Tokens returns one token per license file, tagged with the file path.
func (p *DirectoryTokenProvider) Tokens(ctx context.Context) ([]domainService.ProvidedToken, error) {
	if p.dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(p.dir)
	if err != nil {
		if os.IsNotExist(err) {
			p.log.Debug(ctx, "License directory does not exist", logger.String("dir", p.dir))
			return nil, nil
		}
		return nil, errors.ErrServerError("failed to read license directory").WithCause(err)
	}

	var tokens []domainService.ProvidedToken
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), constants.LicenseFileExtension) {
			continue
		}
		path := filepath.Join(p.dir, entry.Name())
		token, err := readTokenFile(path)
		if err != nil {
			return nil, err
		}
		if token == "" {
			p.log.Warn(ctx, "Skipping empty license file", logger.String("path", path))
			continue
		}
		tokens = append(tokens, domainService.ProvidedToken{Token: token, Source: path})
	}

	return tokens, nil
}

// readTokenFile reads a license file and strips surrounding whitespace.
func readTokenFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.ErrServerError("failed to read license file").
			WithCause(err).WithMetadata("path", path)
	}
	return strings.TrimSpace(string(data)), nil
}

// LicenseWatcher hot-loads license files dropped into the watched directory.
// Runtime ingestion failures are logged, never fatal: a malformed file must
// not take the service down.
// LicenseWatcher 热加载投放到受监视目录中的许可文件。运行时摄取失败只记录日志，
// 绝不致命：一个格式错误的文件不能让服务宕机。
type LicenseWatcher struct {
	dir     string
	app     LicenseAppService
	watcher *fsnotify.Watcher
	log     logger.Logger
	done    chan struct{}
	started bool
}

// NewLicenseWatcher creates a watcher over dir feeding app.
//
// Parameters:
//   - dir: The license directory to watch.
//   - app: The application service that ingests discovered tokens.
//   - log: Logger instance.
//
// Returns:
//   - *LicenseWatcher: The initialized watcher, not yet started.
//   - error: Watcher construction or watch registration failure.
func NewLicenseWatcher(dir string, app LicenseAppService, log logger.Logger) (*LicenseWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.ErrServerError("failed to create file watcher").WithCause(err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, errors.ErrServerError("failed to watch license directory").
			WithCause(err).WithMetadata("dir", dir)
	}

	return &LicenseWatcher{
		dir:     dir,
		app:     app,
		watcher: watcher,
		log:     log.WithComponent("license_watcher"),
		done:    make(chan struct{}),
	}, nil
}

// Start runs the watch loop until ctx is canceled or Close is called.
func (w *LicenseWatcher) Start(ctx context.Context) {
	w.log.Info(ctx, "Watching license directory", logger.String("dir", w.dir))
	w.started = true

	go func() {
		defer close(w.done)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handleEvent(ctx, event)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.log.Warn(ctx, "License watcher error", logger.Error(err))
			}
		}
	}()
}

// handleEvent ingests a license file on create or write. Editors often emit
// several events per save; re-loading the same token is harmless since the
// collection accepts duplicates and persistence upserts by ID.
func (w *LicenseWatcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}
	if !strings.HasSuffix(event.Name, constants.LicenseFileExtension) {
		return
	}

	token, err := readTokenFile(event.Name)
	if err != nil || token == "" {
		w.log.Warn(ctx, "Failed to read changed license file",
			logger.String("path", event.Name),
			logger.Error(err),
		)
		return
	}

	if _, err := w.app.LoadLicense(ctx, token, event.Name); err != nil {
		w.log.Warn(ctx, "Failed to load changed license file",
			logger.String("path", event.Name),
			logger.Error(err),
		)
		return
	}
}

// Close stops the watch loop and releases the underlying watcher.
func (w *LicenseWatcher) Close() error {
	err := w.watcher.Close()
	if w.started {
		<-w.done
	}
	return err
}
