package theme

import (
	"os"
	"strings"
)

// SymbolSet holds the UI symbols, allowing runtime switching between
// Unicode and ASCII fallback sets.
type SymbolSet struct {
	Success string
	Error   string
	Info    string
	ArrowR  string
	Bullet  string
}

var unicodeSymbols = SymbolSet{
	Success: "\u2713", // ✓
	Error:   "\u2717", // ✗
	Info:    "\u25CF", // ●
	ArrowR:  "\u2192", // →
	Bullet:  "\u2022", // •
}

var asciiSymbols = SymbolSet{
	Success: "[OK]",
	Error:   "[ERR]",
	Info:    "[i]",
	ArrowR:  "->",
	Bullet:  "*",
}

// DetectUnicodeSupport checks whether the terminal likely supports Unicode.
// REFLEX_ASCII_SYMBOLS=1 forces ASCII.
func DetectUnicodeSupport() bool {
	if v := os.Getenv("REFLEX_ASCII_SYMBOLS"); v == "1" || strings.EqualFold(v, "true") {
		return false
	}

	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		val := strings.ToLower(os.Getenv(key))
		if strings.Contains(val, "utf-8") || strings.Contains(val, "utf8") {
			return true
		}
	}

	// Most modern terminals support Unicode.
	return true
}

// InitSymbols sets the package-level Symbol* variables based on terminal
// capabilities. Called by init(); call it again after changing the
// environment (e.g. in tests).
func InitSymbols() {
	set := unicodeSymbols
	if !DetectUnicodeSupport() {
		set = asciiSymbols
	}

	SymbolSuccess = set.Success
	SymbolError = set.Error
	SymbolInfo = set.Info
	SymbolArrowR = set.ArrowR
	SymbolBullet = set.Bullet
}

func init() {
	InitSymbols()
}
