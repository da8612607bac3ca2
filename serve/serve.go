// Package serve exposes a read-only GGUF file over HTTP with gin, the
// teacher's own transport library for its model server. Each request
// opens its own gguf.Session so sessions are never shared across
// goroutines, preserving the core's single-owner-per-session rule
// while still letting the server field requests concurrently.
package serve

import (
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/antirez/gguf-tools/gguf"
	"github.com/antirez/gguf-tools/internal/printvalue"
)

// statusFor maps a gguf.Error's Kind to the HTTP status this API
// promises for it: 400 for a malformed file or a usage-ordering
// violation, 501 for a dequantize request this package doesn't have a
// codec for, 500 for everything else (including errors that aren't a
// *gguf.Error at all, e.g. a bare I/O failure).
func statusFor(err error) int {
	var e *gguf.Error
	if errors.As(err, &e) {
		switch e.Kind {
		case gguf.KindInvalid, gguf.KindPrecondition:
			return http.StatusBadRequest
		case gguf.KindUnsupported:
			return http.StatusNotImplemented
		}
	}
	return http.StatusInternalServerError
}

func jsonError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// Router builds the gin engine for path, without binding a listener —
// callers can mount it under a test server or a real one.
func Router(path string) *gin.Engine {
	r := gin.Default()

	r.GET("/header", func(c *gin.Context) {
		withSession(c, path, func(s *gguf.Session) {
			c.JSON(http.StatusOK, gin.H{
				"version":            gguf.Version,
				"tensor_count":       s.TensorCount(),
				"metadata_kv_count":  s.MetadataCount(),
				"alignment":          s.Alignment(),
			})
		})
	})

	r.GET("/metadata", func(c *gin.Context) {
		withSession(c, path, func(s *gguf.Session) {
			var out []gin.H
			for {
				key, ok, err := s.NextKey()
				if err != nil {
					jsonError(c, err)
					return
				}
				if !ok {
					break
				}
				out = append(out, gin.H{
					"name":  key.Name,
					"type":  gguf.ValueTypeName(key.Type),
					"value": printvalue.KeyJSON(key),
				})
			}
			c.JSON(http.StatusOK, out)
		})
	})

	r.GET("/tensors", func(c *gin.Context) {
		withSession(c, path, func(s *gguf.Session) {
			if err := drainMetadata(s); err != nil {
				jsonError(c, err)
				return
			}
			var out []gin.H
			for {
				t, ok, err := s.NextTensor()
				if err != nil {
					jsonError(c, err)
					return
				}
				if !ok {
					break
				}
				out = append(out, gin.H{
					"name":        t.Name,
					"type":        gguf.TypeName(t.Type),
					"offset":      t.AbsOffset,
					"num_weights": t.NumWeights,
					"bsize":       t.ByteSize,
				})
			}
			c.JSON(http.StatusOK, out)
		})
	})

	r.GET("/tensors/:name", func(c *gin.Context) {
		name := c.Param("name")
		count := 0
		if raw := c.Query("count"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "count must be a non-negative integer"})
				return
			}
			count = n
		}

		withSession(c, path, func(s *gguf.Session) {
			if err := drainMetadata(s); err != nil {
				jsonError(c, err)
				return
			}
			for {
				t, ok, err := s.NextTensor()
				if err != nil {
					jsonError(c, err)
					return
				}
				if !ok {
					c.JSON(http.StatusNotFound, gin.H{"error": "no such tensor: " + name})
					return
				}
				if t.Name != name {
					continue
				}

				weights, err := s.Weights(t)
				if err != nil {
					jsonError(c, err)
					return
				}
				n := t.NumWeights
				if count > 0 && uint64(count) < n {
					n = uint64(count)
				}
				values, err := gguf.DecodeF32(t.Type, weights, n)
				if err != nil {
					jsonError(c, err)
					return
				}
				c.JSON(http.StatusOK, gin.H{"name": t.Name, "values": values})
				return
			}
		})
	})

	return r
}

func drainMetadata(s *gguf.Session) error {
	for {
		_, ok, err := s.NextKey()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

func withSession(c *gin.Context, path string, fn func(*gguf.Session)) {
	s, err := gguf.Open(path, gguf.ModeRead)
	if err != nil {
		jsonError(c, err)
		return
	}
	defer s.Close()
	fn(s)
}

// Serve opens path once to validate it, then blocks serving HTTP on ln.
func Serve(ln net.Listener, path string) error {
	if s, err := gguf.Open(path, gguf.ModeRead); err != nil {
		return err
	} else {
		s.Close()
	}
	logrus.WithField("path", path).WithField("addr", ln.Addr().String()).Info("serving gguf file")
	return http.Serve(ln, Router(path))
}
