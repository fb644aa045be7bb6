package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	MinSize          int      // Minimum response size to compress (bytes)
	CompressionLevel int      // Gzip compression level (1-9, 9 is best compression)
	ContentTypes     []string // Content types to compress
}

// DefaultCompressionConfig returns the default compression configuration
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:          1024,
		CompressionLevel: 6,
		ContentTypes: []string{
			"application/json",
			"text/plain",
		},
	}
}

// CompressionMiddleware provides gzip compression for HTTP responses
type CompressionMiddleware struct {
	config CompressionConfig
	stats  *CompressionStats
	pool   sync.Pool
}

// NewCompressionMiddleware creates a new compression middleware
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	if config.CompressionLevel < gzip.BestSpeed || config.CompressionLevel > gzip.BestCompression {
		config.CompressionLevel = gzip.DefaultCompression
	}

	cm := &CompressionMiddleware{
		config: config,
		stats:  NewCompressionStats(),
	}
	cm.pool.New = func() interface{} {
		gz, _ := gzip.NewWriterLevel(io.Discard, cm.config.CompressionLevel)
		return gz
	}
	return cm
}

// Handler returns a Gin middleware that gzips eligible responses
func (cm *CompressionMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cm.clientAcceptsGzip(c.Request) || c.Request.Method == http.MethodHead || isUpgrade(c.Request) {
			c.Next()
			return
		}

		gzw := &gzipResponseWriter{ResponseWriter: c.Writer, cm: cm}
		c.Writer = gzw
		defer func() {
			gzw.finish()
			c.Writer = gzw.ResponseWriter
		}()

		c.Next()
	}
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// clientAcceptsGzip checks if the client accepts gzip compression
func (cm *CompressionMiddleware) clientAcceptsGzip(r *http.Request) bool {
	acceptEncoding := r.Header.Get("Accept-Encoding")
	return strings.Contains(acceptEncoding, "gzip")
}

// shouldCompress checks if the content type should be compressed
func (cm *CompressionMiddleware) shouldCompress(contentType string) bool {
	for _, ct := range cm.config.ContentTypes {
		if strings.Contains(contentType, ct) {
			return true
		}
	}
	return false
}

// gzipResponseWriter buffers the response until MinSize bytes are known,
// then either compresses it or passes it through unchanged
type gzipResponseWriter struct {
	gin.ResponseWriter
	cm       *CompressionMiddleware
	buf      bytes.Buffer
	gz       *gzip.Writer
	decided  bool
	original int64
}

func (gzw *gzipResponseWriter) Write(data []byte) (int, error) {
	gzw.original += int64(len(data))

	if gzw.decided {
		return gzw.write(data)
	}

	gzw.buf.Write(data)
	if gzw.buf.Len() >= gzw.cm.config.MinSize {
		if err := gzw.decide(); err != nil {
			return 0, err
		}
	}
	return len(data), nil
}

func (gzw *gzipResponseWriter) WriteString(s string) (int, error) {
	return gzw.Write([]byte(s))
}

// Written reports buffered bytes as written so handlers do not write twice
func (gzw *gzipResponseWriter) Written() bool {
	return gzw.buf.Len() > 0 || gzw.ResponseWriter.Written()
}

func (gzw *gzipResponseWriter) write(data []byte) (int, error) {
	if gzw.gz != nil {
		return gzw.gz.Write(data)
	}
	return gzw.ResponseWriter.Write(data)
}

// decide picks compression from the buffered prefix and flushes it
func (gzw *gzipResponseWriter) decide() error {
	if gzw.decided {
		return nil
	}
	gzw.decided = true

	header := gzw.Header()
	status := gzw.Status()
	if gzw.buf.Len() >= gzw.cm.config.MinSize &&
		gzw.cm.shouldCompress(header.Get("Content-Type")) &&
		header.Get("Content-Encoding") == "" &&
		status != http.StatusNoContent && status != http.StatusNotModified {
		header.Set("Content-Encoding", "gzip")
		header.Add("Vary", "Accept-Encoding")
		header.Del("Content-Length")

		gzw.gz = gzw.cm.pool.Get().(*gzip.Writer)
		gzw.gz.Reset(gzw.ResponseWriter)
	}

	if gzw.buf.Len() == 0 {
		return nil
	}
	_, err := gzw.write(gzw.buf.Bytes())
	gzw.buf.Reset()
	return err
}

// Flush flushes the gzip writer
func (gzw *gzipResponseWriter) Flush() {
	_ = gzw.decide()
	if gzw.gz != nil {
		_ = gzw.gz.Flush()
	}
	gzw.ResponseWriter.Flush()
}

func (gzw *gzipResponseWriter) finish() {
	_ = gzw.decide()

	compressed := gzw.gz != nil
	if compressed {
		_ = gzw.gz.Close()
		gzw.gz.Reset(io.Discard)
		gzw.cm.pool.Put(gzw.gz)
		gzw.gz = nil
	}

	size := int64(gzw.ResponseWriter.Size())
	if size < 0 {
		size = 0
	}
	gzw.cm.stats.RecordRequest(gzw.original, size, compressed)
}

// CompressionStats tracks compression statistics
type CompressionStats struct {
	TotalRequests      int64
	CompressedRequests int64
	TotalBytes         int64
	CompressedBytes    int64
	mutex              sync.RWMutex
}

// NewCompressionStats creates new compression statistics
func NewCompressionStats() *CompressionStats {
	return &CompressionStats{}
}

// RecordRequest records a request's compression stats.
// Savings are measured over compressed responses only.
func (cs *CompressionStats) RecordRequest(originalSize, compressedSize int64, compressed bool) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.TotalRequests++

	if compressed {
		cs.CompressedRequests++
		cs.TotalBytes += originalSize
		cs.CompressedBytes += compressedSize
	}
}

// GetStats returns current compression statistics
func (cs *CompressionStats) GetStats() map[string]interface{} {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	compressionRatio := float64(0)
	if cs.TotalBytes > 0 {
		compressionRatio = float64(cs.CompressedBytes) / float64(cs.TotalBytes)
	}

	savings := float64(0)
	if cs.TotalBytes > 0 {
		savings = 1.0 - compressionRatio
	}

	return map[string]interface{}{
		"total_requests":      cs.TotalRequests,
		"compressed_requests": cs.CompressedRequests,
		"total_bytes":         cs.TotalBytes,
		"compressed_bytes":    cs.CompressedBytes,
		"compression_ratio":   compressionRatio,
		"compression_savings": savings,
	}
}

// GetStats returns compression statistics
func (cm *CompressionMiddleware) GetStats() map[string]interface{} {
	return cm.stats.GetStats()
}
