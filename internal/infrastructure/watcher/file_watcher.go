package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/samlazrak/LocalContextMCP/internal/domain/events"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/config"
	"github.com/samlazrak/LocalContextMCP/internal/infrastructure/log"
)

// ingestExtensions 可导入的文件扩展名
var ingestExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// IngestWatcher 监听导入目录，将落盘的文本文件发布为导入事件
// 写入事件经防抖合并，避免编辑器多次保存触发重复导入
type IngestWatcher struct {
	watchDir      string
	debounceDelay time.Duration
	eventBus      events.EventBus
	watcher       *fsnotify.Watcher
	logger        *slog.Logger

	// 防抖相关
	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex

	// 控制
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewIngestWatcher 创建导入目录监听器
// 未配置监听目录时返回 nil，调用方按禁用处理
func NewIngestWatcher(cfg *config.IngestConfig, eventBus events.EventBus) (*IngestWatcher, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	delay := cfg.DebounceDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	return &IngestWatcher{
		watchDir:       cfg.WatchDir,
		debounceDelay:  delay,
		eventBus:       eventBus,
		watcher:        watcher,
		logger:         log.NewModuleLogger("watcher", "ingest"),
		debounceTimers: make(map[string]*time.Timer),
		stopCh:         make(chan struct{}),
	}, nil
}

// Start 启动监听
func (iw *IngestWatcher) Start() error {
	if err := os.MkdirAll(iw.watchDir, 0755); err != nil {
		return err
	}
	if err := iw.watcher.Add(iw.watchDir); err != nil {
		return err
	}

	iw.logger.Info("Starting ingest watcher",
		"watch_dir", iw.watchDir,
		"debounce", iw.debounceDelay.String(),
	)

	iw.wg.Add(1)
	go iw.watchLoop()
	return nil
}

// Stop 停止监听
func (iw *IngestWatcher) Stop() {
	close(iw.stopCh)
	iw.watcher.Close()
	iw.wg.Wait()

	// 取消所有防抖定时器
	iw.debounceMu.Lock()
	for _, timer := range iw.debounceTimers {
		timer.Stop()
	}
	iw.debounceMu.Unlock()

	iw.logger.Info("Ingest watcher stopped")
}

// watchLoop 事件监听循环
func (iw *IngestWatcher) watchLoop() {
	defer iw.wg.Done()

	for {
		select {
		case <-iw.stopCh:
			return

		case event, ok := <-iw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !ingestExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			iw.debounce(event.Name)

		case err, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}
			iw.logger.Error("Watcher error", "error", err)
		}
	}
}

// debounce 同一文件的连续写入合并为一次导入事件
func (iw *IngestWatcher) debounce(path string) {
	iw.debounceMu.Lock()
	defer iw.debounceMu.Unlock()

	if timer, exists := iw.debounceTimers[path]; exists {
		timer.Stop()
	}

	iw.debounceTimers[path] = time.AfterFunc(iw.debounceDelay, func() {
		iw.debounceMu.Lock()
		delete(iw.debounceTimers, path)
		iw.debounceMu.Unlock()

		iw.publishIngest(path)
	})
}

// publishIngest 发布导入事件，会话名取自文件名
func (iw *IngestWatcher) publishIngest(path string) {
	info, err := os.Stat(path)
	if err != nil {
		iw.logger.Warn("Ingest candidate disappeared", "path", path, "error", err)
		return
	}
	if info.IsDir() {
		return
	}

	iw.eventBus.Publish(&events.IngestFileEvent{
		SessionID: "file:" + filepath.Base(path),
		FilePath:  path,
		FileSize:  info.Size(),
		EventTime: time.Now(),
	})

	iw.logger.Info("Published ingest event",
		"path", path,
		"size", info.Size(),
	)
}
