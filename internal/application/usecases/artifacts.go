package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/cita-scheduler/internal/domain/cita"
)

// Artifacts writes timestamped screenshots and page dumps. A nil *Artifacts
// drops everything.
type Artifacts struct {
	Dir     string
	Enabled bool
	Now     func() time.Time
	Logger  *slog.Logger
}

const stampLayout = "2006-01-02 15:04:05.000000"

func (a *Artifacts) name(prefix, ext string) string {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	n := fmt.Sprintf("%s-%s.%s", prefix, now().Format(stampLayout), ext)
	return filepath.Join(a.Dir, strings.ReplaceAll(n, ":", "-"))
}

func (a *Artifacts) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// Screenshot captures the page when capture is enabled.
func (a *Artifacts) Screenshot(ctx context.Context, page cita.PageSession, prefix string) {
	if a == nil || !a.Enabled {
		return
	}
	a.ScreenshotAlways(ctx, page, prefix)
}

// ScreenshotAlways captures the page regardless of the Enabled flag.
func (a *Artifacts) ScreenshotAlways(ctx context.Context, page cita.PageSession, prefix string) {
	if a == nil {
		return
	}
	png, err := page.Screenshot(ctx)
	if err != nil {
		a.logger().Warn("screenshot failed", "prefix", prefix, "error", err)
		return
	}
	a.write(a.name(prefix, "png"), png)
}

func (a *Artifacts) HTML(prefix, markup string) {
	if a == nil || !a.Enabled {
		return
	}
	a.write(a.name(prefix, "html"), []byte(markup))
}

func (a *Artifacts) write(path string, data []byte) {
	if a.Dir != "" {
		if err := os.MkdirAll(a.Dir, 0o755); err != nil {
			a.logger().Warn("artifacts dir", "dir", a.Dir, "error", err)
			return
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		a.logger().Warn("write artifact", "path", path, "error", err)
		return
	}
	a.logger().Info("artifact saved", "path", path)
}
