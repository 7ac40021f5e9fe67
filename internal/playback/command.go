package playback

import "time"

// Command is a request consumed by the engine loop. The set is closed: only this package implements it.
type Command interface {
	command()
}

// SelectFile decodes Path and replaces the loaded file.
type SelectFile struct {
	Path string
}

// TogglePlay switches between playing and paused. At end of track it restarts from the beginning.
// Positions reported after it carry Epoch.
type TogglePlay struct {
	Epoch uint64
}

// Seek moves the play position by Delta (negative to rewind). Positions reported after it, the seek
// target included, carry Epoch.
type Seek struct {
	Delta time.Duration
	Epoch uint64
}

// Stop detaches the current file.
type Stop struct{}

// Quit stops playback and ends Run.
type Quit struct{}

func (SelectFile) command() {}
func (TogglePlay) command() {}
func (Seek) command()       {}
func (Stop) command()       {}
func (Quit) command()       {}
