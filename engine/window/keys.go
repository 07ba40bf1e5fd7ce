package window

// Key identifies a keyboard key. Values match GLFW key codes, which use ASCII for
// printable keys.
type Key int

const (
	KeySpace  Key = 32
	Key0      Key = 48
	Key1      Key = 49
	Key2      Key = 50
	Key3      Key = 51
	KeyA      Key = 65
	KeyC      Key = 67
	KeyD      Key = 68
	KeyE      Key = 69
	KeyO      Key = 79
	KeyP      Key = 80
	KeyQ      Key = 81
	KeyS      Key = 83
	KeyW      Key = 87
	KeyEscape Key = 256
	KeyF1     Key = 290
	KeyF2     Key = 291
	KeyF3     Key = 292
	KeyF12    Key = 301
)
