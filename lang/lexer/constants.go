package lexer

// SymbolicConstants maps identifiers that are recognised as integer literals
// rather than variable/function names. The full hardware-facing enum (GPIO
// ports, I2C/UART instances, colours, fonts, pin attributes, ...) lives in
// the out-of-scope built-in/driver layer (spec.md §1); this is the
// representative subset needed by the core language: boolean and digital-pin
// literals, pin pull/drive modes, the stringification-format codes, EOF and
// the SEEK_* origins. All of them are plain integers to the core; in
// particular the optimiser's int-to-string folding always writes decimal and
// does not consult the format codes.
var SymbolicConstants = map[string]int{
	"TRUE":  1,
	"FALSE": 0,

	"HIGH": 1,
	"LOW":  0,

	"INPUT":  0,
	"OUTPUT": 1,

	"NOPULL":     0,
	"PULLUP":     1,
	"PULLDOWN":   2,
	"PUSHPULL":   3,
	"OPENDRAIN":  4,
	"NOPULLUP":   5,
	"NOPULLDOWN": 6,

	"DEC":  0,
	"DEC0": 1,
	"HEX":  2,
	"BIN":  3,
	"STR":  4,

	"EOF": -1,

	"SEEK_SET": 0,
	"SEEK_CUR": 1,
	"SEEK_END": 2,
}
