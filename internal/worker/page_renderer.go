package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// PageRenderer 将一个页面渲染为 JPEG 截图。
type PageRenderer interface {
	Screenshot(ctx context.Context, targetURL string) ([]byte, error)
}

// 前端渲染完成后插入的标记元素；找不到时按页面 load 结果继续截图。
const renderReadySelector = "#portfolio-render-ready"

// RodRenderer 使用无头 Chromium 渲染公开作品集页面。
type RodRenderer struct {
	logger  *slog.Logger
	quality int
	width   int
	height  int
	timeout time.Duration
}

// NewRodRenderer 构造 RodRenderer。
func NewRodRenderer(logger *slog.Logger) *RodRenderer {
	return &RodRenderer{
		logger:  logger,
		quality: 80,
		width:   1280,
		height:  800,
		timeout: 90 * time.Second,
	}
}

// Screenshot 打开 targetURL，等待渲染完成后截取首屏。
func (r *RodRenderer) Screenshot(ctx context.Context, targetURL string) (_ []byte, err error) {
	log := r.logger.With(slog.String("url", targetURL))
	log.Info("Worker: Navigating to public portfolio page...")

	launch := launcher.New().
		Headless(true).
		NoSandbox(true)
	defer launch.Cleanup()

	if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(browserURL).Context(ctx).Timeout(r.timeout)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() { _ = browser.Close() }()

	page, err := browser.Page(proto.TargetCreateTarget{URL: targetURL})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             r.width,
		Height:            r.height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	if _, err := page.Timeout(30 * time.Second).Element(renderReadySelector); err != nil {
		log.Warn("Worker: render signal not found, continue", slog.Any("error", err))
	}

	// 等待字体就绪，避免回退字体导致截图排版不同
	if _, evalErr := page.Timeout(5 * time.Second).Eval(`() => {
	  if (document && document.fonts && document.fonts.ready) {
	    return Promise.race([
	      document.fonts.ready.then(() => true),
	      new Promise((resolve) => setTimeout(() => resolve(true), 3000))
	    ]);
	  }
	  return true;
	}`); evalErr != nil {
		log.Warn("Worker: document.fonts.ready wait failed, continue", slog.Any("error", evalErr))
	}

	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: intPtr(r.quality),
	})
	if err != nil {
		return nil, fmt.Errorf("page screenshot: %w", err)
	}
	log.Info("Worker: Preview captured.", slog.Int("bytes", len(data)))
	return data, nil
}

func intPtr(value int) *int {
	return &value
}
