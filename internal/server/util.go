package server

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
)

// maxNameLen bounds process names accepted over HTTP.
const maxNameLen = 260

func sanitizeBase(bp string) string {
	bp = strings.TrimSpace(bp)
	if bp == "" || bp == "/" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	bp = strings.TrimRight(bp, "/")
	return bp
}

// isSafeName validates executable names passed to the capture tool's
// process filter. Letters and digits of any script are allowed, plus
// space . _ - ( ) + and no "..", path separators or control characters.
func isSafeName(s string) bool {
	if strings.TrimSpace(s) == "" || len(s) > maxNameLen {
		return false
	}
	if strings.Contains(s, "..") {
		return false
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case ' ', '.', '_', '-', '(', ')', '+':
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, code int, v any) {
	c.Header("Content-Type", "application/json")
	c.Status(code)
	_ = json.NewEncoder(c.Writer).Encode(v)
}
