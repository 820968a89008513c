package input

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.design/x/hotkey"
)

// Mode selects how the hotkey drives recording.
type Mode int

const (
	// ModeToggle flips recording on each press.
	ModeToggle Mode = iota

	// ModeHold records while the key is held (push-to-talk).
	ModeHold
)

// Listener registers a global hotkey and reports recording state
// changes. In toggle mode each keydown flips the state; in hold mode
// keydown activates and keyup deactivates.
type Listener struct {
	mu      sync.Mutex
	hk      *hotkey.Hotkey
	mode    Mode
	active  bool
	onState func(active bool)
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewListener creates a listener. onState is called on every state
// change, from the listener's goroutine.
func NewListener(mode Mode, onState func(active bool)) *Listener {
	return &Listener{
		mode:    mode,
		onState: onState,
		done:    make(chan struct{}),
	}
}

// Start registers the key combination and begins listening.
func (l *Listener) Start(ctx context.Context, combo string) error {
	mods, key, err := ParseCombo(combo)
	if err != nil {
		return fmt.Errorf("invalid hotkey: %w", err)
	}

	l.hk = hotkey.New(mods, key)
	if err := l.hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey: %w", err)
	}

	ctx, l.cancel = context.WithCancel(ctx)

	go func() {
		defer close(l.done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-l.hk.Keydown():
				if !ok {
					return
				}
				if l.mode == ModeHold {
					l.setActive(true)
				} else {
					l.mu.Lock()
					l.active = !l.active
					active := l.active
					l.mu.Unlock()
					if l.onState != nil {
						l.onState(active)
					}
				}
			case _, ok := <-l.hk.Keyup():
				if !ok {
					return
				}
				if l.mode == ModeHold {
					l.setActive(false)
				}
			}
		}
	}()

	return nil
}

func (l *Listener) setActive(active bool) {
	l.mu.Lock()
	changed := l.active != active
	l.active = active
	l.mu.Unlock()

	if changed && l.onState != nil {
		l.onState(active)
	}
}

// Stop unregisters the hotkey and stops the listener.
func (l *Listener) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	if l.hk != nil {
		l.hk.Unregister()
	}
	if l.done != nil {
		select {
		case <-l.done:
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// IsActive returns the current recording state.
func (l *Listener) IsActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// ParseCombo parses a combination like "ctrl+shift+space" into
// modifiers and a key.
func ParseCombo(s string) ([]hotkey.Modifier, hotkey.Key, error) {
	parts := strings.Split(strings.ToLower(s), "+")

	var mods []hotkey.Modifier
	var key hotkey.Key
	var keyFound bool

	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			return nil, 0, fmt.Errorf("empty hotkey component")
		case "ctrl", "control":
			mods = append(mods, hotkey.ModCtrl)
		case "shift":
			mods = append(mods, hotkey.ModShift)
		case "alt", "option":
			mods = append(mods, modAlt())
		case "cmd", "command", "super", "win":
			mods = append(mods, modSuper())
		default:
			if keyFound {
				return nil, 0, fmt.Errorf("multiple keys specified")
			}
			k, ok := keyNames[part]
			if !ok {
				return nil, 0, fmt.Errorf("unknown key: %s", part)
			}
			key = k
			keyFound = true
		}
	}

	if !keyFound {
		return nil, 0, fmt.Errorf("no key specified")
	}

	return mods, key, nil
}

var keyNames = map[string]hotkey.Key{
	"space":  hotkey.KeySpace,
	"return": hotkey.KeyReturn,
	"enter":  hotkey.KeyReturn,
	"tab":    hotkey.KeyTab,
	"escape": hotkey.KeyEscape,
	"esc":    hotkey.KeyEscape,

	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,

	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,

	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3,
	"f4": hotkey.KeyF4, "f5": hotkey.KeyF5, "f6": hotkey.KeyF6,
	"f7": hotkey.KeyF7, "f8": hotkey.KeyF8, "f9": hotkey.KeyF9,
	"f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}
