package profiling

import (
	"net/http"
	"net/http/pprof"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
)

// MemoryStats is a snapshot of the Go runtime's memory usage.
type MemoryStats struct {
	AllocMB     float64 `json:"allocMb"`
	SysMB       float64 `json:"sysMb"`
	HeapInUseMB float64 `json:"heapInUseMb"`
	NumGC       uint32  `json:"numGc"`
	Goroutines  int     `json:"goroutines"`
	HeapObjects uint64  `json:"heapObjects"`
	CollectedAt string  `json:"collectedAt"`
}

const bytesPerMB = 1024 * 1024

func ReadMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocMB:     float64(m.Alloc) / bytesPerMB,
		SysMB:       float64(m.Sys) / bytesPerMB,
		HeapInUseMB: float64(m.HeapInuse) / bytesPerMB,
		NumGC:       m.NumGC,
		Goroutines:  runtime.NumGoroutine(),
		HeapObjects: m.HeapObjects,
		CollectedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// RegisterRoutes mounts the pprof endpoints under <g>/pprof and a memory
// snapshot under <g>/memory. Long-lived SSE streams make goroutine and
// heap profiles the useful ones here.
func RegisterRoutes(g *echo.Group) {
	p := g.Group("/pprof")
	p.GET("/", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	p.GET("/cmdline", echo.WrapHandler(http.HandlerFunc(pprof.Cmdline)))
	p.GET("/profile", echo.WrapHandler(http.HandlerFunc(pprof.Profile)))
	p.GET("/symbol", echo.WrapHandler(http.HandlerFunc(pprof.Symbol)))
	p.GET("/trace", echo.WrapHandler(http.HandlerFunc(pprof.Trace)))
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		p.GET("/"+name, echo.WrapHandler(pprof.Handler(name)))
	}

	g.GET("/memory", func(c echo.Context) error {
		return c.JSON(http.StatusOK, ReadMemoryStats())
	})
}
