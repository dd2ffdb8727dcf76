package rollback

import (
	"encoding/hex"
	"fmt"

	"github.com/glovebox/server/internal/gameplay"
)

// PhysicsState is the per-player checksum exchanged on confirmation: the
// wrapping sum of the IEEE-754 bit patterns of the player's and its
// gloves' validated body state.
type PhysicsState = uint32

// ValidationError reports an attempt to validate a frame before every
// player's input for it has arrived.
type ValidationError struct {
	Frame        Frame
	Player       gameplay.PlayerNumber
	LastReceived Frame
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate frame %d: player %d inputs received only up to frame %d",
		e.Frame, e.Player, e.LastReceived)
}

// DesyncError reports a checksum that differs from the authoritative one.
// Digest covers the whole local validated state for offline comparison.
type DesyncError struct {
	Frame  Frame
	Player gameplay.PlayerNumber
	Server PhysicsState
	Local  PhysicsState
	Digest [32]byte
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("desync at frame %d for player %d: server checksum %08x, local %08x (state %s)",
		e.Frame, e.Player, e.Server, e.Local, hex.EncodeToString(e.Digest[:8]))
}
