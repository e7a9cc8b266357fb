package notification

import "context"

type OrderNotes interface {
	AddNote(ctx context.Context, orderID int64, note string) error
}
