package cli

import "github.com/eiannone/keyboard"

// StartKeyEvents returns a channel that emits single key runes read without
// Enter, for the -c diagnostic loop's "press q or Esc to quit" affordance.
// The caller should not close the returned channel. If the terminal can't be
// opened for raw key reads (e.g. stdin isn't a TTY), the channel is returned
// anyway but will never emit.
func StartKeyEvents() chan rune {
	ch := make(chan rune)
	if err := keyboard.Open(); err != nil {
		return ch
	}
	go func() {
		defer keyboard.Close()
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			switch {
			case key == keyboard.KeyEsc:
				ch <- 27
			case key == 0:
				ch <- char
			}
		}
	}()
	return ch
}
