package recipient

import (
	"context"
	"fmt"

	"github.com/NordCoder/Smsgate/internal/domain/user"
)

const (
	HandlerAddMobileField = "add_mobile_field"
	HandlerUsePhoneField  = "use_phone_field"

	mobileFieldKey   = "mobile"
	billingPhoneKey  = "_billing_phone"
	legacyBillingKey = "billing_phone"
)

// MobileResolver knows which user meta field holds a user's mobile number.
type MobileResolver interface {
	FieldName() string
	MobileByUserID(ctx context.Context, userID int64) (string, error)
	// AuthorMobile reads the dedicated "mobile" field whatever the handler.
	AuthorMobile(ctx context.Context, userID int64) (string, error)
	ListMobiles(ctx context.Context, roles []string) ([]string, error)
}

func NewMobileResolver(handler string, users user.Repo, meta user.MetaReader) (MobileResolver, error) {
	switch handler {
	case "", HandlerAddMobileField:
		return &AddMobileField{Users: users, Meta: meta}, nil
	case HandlerUsePhoneField:
		return &UsePhoneField{Users: users, Meta: meta}, nil
	default:
		return nil, fmt.Errorf("unknown mobile field handler %q", handler)
	}
}

// AddMobileField stores the number in a dedicated "mobile" field.
type AddMobileField struct {
	Users user.Repo
	Meta  user.MetaReader
}

func (a *AddMobileField) FieldName() string { return mobileFieldKey }

func (a *AddMobileField) MobileByUserID(ctx context.Context, userID int64) (string, error) {
	return a.Meta.GetMeta(ctx, userID, mobileFieldKey)
}

func (a *AddMobileField) AuthorMobile(ctx context.Context, userID int64) (string, error) {
	return a.Meta.GetMeta(ctx, userID, mobileFieldKey)
}

func (a *AddMobileField) ListMobiles(ctx context.Context, roles []string) ([]string, error) {
	return a.Users.ListMobiles(ctx, roles, mobileFieldKey)
}

// UsePhoneField reuses the shop billing phone. Older installs kept it under
// "billing_phone", which is read when "_billing_phone" is empty.
type UsePhoneField struct {
	Users user.Repo
	Meta  user.MetaReader
}

func (u *UsePhoneField) FieldName() string { return billingPhoneKey }

func (u *UsePhoneField) MobileByUserID(ctx context.Context, userID int64) (string, error) {
	m, err := u.Meta.GetMeta(ctx, userID, billingPhoneKey)
	if err != nil {
		return "", err
	}
	if m != "" {
		return m, nil
	}
	return u.Meta.GetMeta(ctx, userID, legacyBillingKey)
}

func (u *UsePhoneField) AuthorMobile(ctx context.Context, userID int64) (string, error) {
	return u.Meta.GetMeta(ctx, userID, mobileFieldKey)
}

func (u *UsePhoneField) ListMobiles(ctx context.Context, roles []string) ([]string, error) {
	return u.Users.ListMobiles(ctx, roles, billingPhoneKey, legacyBillingKey)
}
