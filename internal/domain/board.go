package domain

import (
	"time"

	"github.com/gogpu/gg"
)

// Transform is a 2D affine viewport matrix in canvas order
// [a b c d e f]: x' = a*x + c*y + e, y' = b*x + d*y + f.
type Transform [6]float64

// IdentityTransform is zoom 1 with no translation.
var IdentityTransform = Transform{1, 0, 0, 1, 0, 0}

// Matrix converts t to a gg row-major matrix.
func (t Transform) Matrix() gg.Matrix {
	return gg.Matrix{
		A: t[0], B: t[2], C: t[4],
		D: t[1], E: t[3], F: t[5],
	}
}

// TransformFromMatrix converts a gg matrix to canvas order.
func TransformFromMatrix(m gg.Matrix) Transform {
	return Transform{m.A, m.D, m.B, m.E, m.C, m.F}
}

// Board is a persisted document: the serialized scene plus the viewport
// it was last viewed with.
type Board struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Document  string    `json:"document"`
	Viewport  Transform `json:"viewport"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BoardStore persists boards.
type BoardStore interface {
	CreateBoard(b *Board) error
	GetBoard(id string) (*Board, error)
	ListBoards() ([]Board, error)
	SaveDocument(id, document string, viewport Transform) (time.Time, error)
	RenameBoard(id, name string) error
	DeleteBoard(id string) error
}
