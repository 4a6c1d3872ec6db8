// AngelaMos | 2026
// disconnected.go

package backend

import (
	"context"
	"io"

	"github.com/studyvault/studyvault/internal/core"
)

// disconnected answers every call with core.ErrNotConnected. It stands in
// when the service starts without backend credentials so the rest of the
// process keeps working.
type disconnected struct{}

func Disconnected() Client {
	return disconnected{}
}

func (disconnected) Connected() bool        { return false }
func (disconnected) Auth() AuthAPI          { return disconnected{} }
func (disconnected) Profiles() ProfileStore { return disconnected{} }
func (disconnected) Books() BookStore       { return disconnected{} }
func (disconnected) Storage() ObjectStore   { return disconnected{} }

func (disconnected) Ping(context.Context) error {
	return core.ErrNotConnected
}

func (disconnected) SignInWithPassword(context.Context, string, string) (*Session, error) {
	return nil, core.ErrNotConnected
}

func (disconnected) SignUp(context.Context, SignUpParams) (*SignUpResult, error) {
	return nil, core.ErrNotConnected
}

func (disconnected) Refresh(context.Context, string) (*Session, error) {
	return nil, core.ErrNotConnected
}

func (disconnected) SignOut(context.Context, string) error {
	return core.ErrNotConnected
}

func (disconnected) GetProfile(context.Context, string) (*ProfileRow, error) {
	return nil, core.ErrNotConnected
}

func (disconnected) InsertProfile(context.Context, ProfileRow) error {
	return core.ErrNotConnected
}

func (disconnected) UpsertProfile(context.Context, ProfileRow) error {
	return core.ErrNotConnected
}

func (disconnected) ListBooks(context.Context) ([]BookRow, error) {
	return nil, core.ErrNotConnected
}

func (disconnected) InsertBook(context.Context, BookInsert) (*BookRow, error) {
	return nil, core.ErrNotConnected
}

func (disconnected) DeleteBook(context.Context, string) error {
	return core.ErrNotConnected
}

func (disconnected) CountBooks(context.Context) (int, error) {
	return 0, core.ErrNotConnected
}

func (disconnected) Configured() bool { return false }

func (disconnected) Upload(context.Context, string, string, io.Reader, int64) error {
	return core.ErrNotConnected
}

func (disconnected) PublicURL(string) string { return "" }
