package recipient

import (
	"context"
	"slices"
	"testing"

	"github.com/NordCoder/Smsgate/internal/domain/notification"
	"github.com/NordCoder/Smsgate/internal/domain/subscriber"
	"github.com/NordCoder/Smsgate/internal/domain/user"
	"github.com/stretchr/testify/require"
)

type memSubscribers struct {
	subs []*subscriber.Subscriber
}

func (m *memSubscribers) ListActiveMobiles(_ context.Context, groupIDs []int64) ([]string, error) {
	var out []string
	for _, s := range m.subs {
		if !s.Active {
			continue
		}
		if len(groupIDs) > 0 && !slices.Contains(groupIDs, s.GroupID) {
			continue
		}
		out = append(out, s.Mobile)
	}
	return out, nil
}

func (m *memSubscribers) ListGroups(context.Context) ([]*subscriber.Group, error) { return nil, nil }

type memUsers struct {
	users []*user.User
	meta  map[int64]map[string]string
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) ListMobiles(_ context.Context, roles []string, keys ...string) ([]string, error) {
	var out []string
	for _, u := range m.users {
		if len(roles) > 0 && !slices.ContainsFunc(u.Roles, func(r string) bool { return slices.Contains(roles, r) }) {
			continue
		}
		for _, key := range keys {
			if v := m.meta[u.ID][key]; v != "" {
				out = append(out, v)
				break
			}
		}
	}
	return out, nil
}

func (m *memUsers) GetMeta(_ context.Context, id int64, key string) (string, error) {
	return m.meta[id][key], nil
}

func fixture() (*memSubscribers, *memUsers) {
	subs := &memSubscribers{subs: []*subscriber.Subscriber{
		{ID: 1, Mobile: "+100", GroupID: 1, Active: true},
		{ID: 2, Mobile: "+200", GroupID: 2, Active: true},
		{ID: 3, Mobile: "+300", GroupID: 2, Active: false},
	}}
	users := &memUsers{
		users: []*user.User{
			{ID: 10, Roles: []string{"editor"}},
			{ID: 11, Roles: []string{"customer"}},
			{ID: 12, Roles: []string{"editor"}},
		},
		meta: map[int64]map[string]string{
			10: {"mobile": "+1010"},
			11: {"mobile": "+1111", "billing_phone": "+1199"},
			12: {},
		},
	}
	return subs, users
}

func newResolver(cfg Config) (*Resolver, *memUsers) {
	subs, users := fixture()
	return New(subs, &AddMobileField{Users: users, Meta: users}, cfg), users
}

func TestPostPublished_Receivers(t *testing.T) {
	r, _ := newResolver(Config{PostTypes: []string{"post"}, SendMMS: true})
	ctx := context.Background()
	p := &notification.Post{ID: 1, Type: "post", Status: "publish", ThumbnailURL: "https://img.test/t.png"}

	to, media, err := r.PostPublished(ctx, p, PostMeta{Receiver: ReceiverSubscriber, Group: "all"})
	require.NoError(t, err)
	require.Equal(t, []string{"+100", "+200"}, to)
	require.Equal(t, []string{"https://img.test/t.png"}, media)

	to, _, err = r.PostPublished(ctx, p, PostMeta{Receiver: ReceiverSubscriber, Group: "2"})
	require.NoError(t, err)
	require.Equal(t, []string{"+200"}, to)

	to, _, err = r.PostPublished(ctx, p, PostMeta{Receiver: ReceiverNumbers, Numbers: " +1, ,+2 ,"})
	require.NoError(t, err)
	require.Equal(t, []string{"+1", "+2"}, to)

	to, _, err = r.PostPublished(ctx, p, PostMeta{Receiver: ReceiverUsers, Roles: []string{"editor"}})
	require.NoError(t, err)
	require.Equal(t, []string{"+1010"}, to)

	_, _, err = r.PostPublished(ctx, p, PostMeta{Receiver: ReceiverSubscriber, Group: "vip"})
	require.Error(t, err)
}

func TestPostPublished_Skips(t *testing.T) {
	r, _ := newResolver(Config{PostTypes: []string{"post"}})
	ctx := context.Background()
	meta := PostMeta{Receiver: ReceiverNumbers, Numbers: "+1"}

	to, _, err := r.PostPublished(ctx, &notification.Post{Type: "post", Status: "future"}, meta)
	require.NoError(t, err)
	require.Empty(t, to)
	require.True(t, IsScheduled(&notification.Post{Status: "future"}))

	to, _, err = r.PostPublished(ctx, &notification.Post{Type: "page", Status: "publish"}, meta)
	require.NoError(t, err)
	require.Empty(t, to)
}

func TestNewUser(t *testing.T) {
	r, _ := newResolver(Config{AdminMobile: "+999"})
	ctx := context.Background()

	admin, own, err := r.NewUser(ctx, 10, "+555")
	require.NoError(t, err)
	require.Equal(t, []string{"+999"}, admin)
	require.Equal(t, []string{"+1010"}, own)

	_, own, err = r.NewUser(ctx, 12, " +555 ")
	require.NoError(t, err)
	require.Equal(t, []string{"+555"}, own)

	r, _ = newResolver(Config{})
	admin, own, err = r.NewUser(ctx, 12, "")
	require.NoError(t, err)
	require.Empty(t, admin)
	require.Empty(t, own)
}

func TestComment(t *testing.T) {
	r, _ := newResolver(Config{AdminMobile: "+999"})
	require.Equal(t, []string{"+999"}, r.Comment(&notification.Comment{Type: "comment"}))
	require.Empty(t, r.Comment(&notification.Comment{Type: "order_note"}))
	require.Empty(t, r.Comment(&notification.Comment{Type: "edd_payment_note"}))
}

func TestLogin_PrimaryRoleOnly(t *testing.T) {
	r, _ := newResolver(Config{AdminMobile: "+999", LoginRoles: []string{"administrator"}})
	require.Equal(t, []string{"+999"}, r.Login(&user.User{Roles: []string{"administrator", "editor"}}))
	require.Empty(t, r.Login(&user.User{Roles: []string{"editor", "administrator"}}))

	r, _ = newResolver(Config{AdminMobile: "+999"})
	require.Equal(t, []string{"+999"}, r.Login(&user.User{}))
}

func TestAuthorOnPublish(t *testing.T) {
	r, _ := newResolver(Config{AuthorPostTypes: []string{"post"}})
	ctx := context.Background()
	p := &notification.Post{Type: "post", AuthorID: 10}

	to, err := r.AuthorOnPublish(ctx, p, "draft", "publish")
	require.NoError(t, err)
	require.Equal(t, []string{"+1010"}, to)

	to, err = r.AuthorOnPublish(ctx, p, "publish", "publish")
	require.NoError(t, err)
	require.Empty(t, to)

	to, err = r.AuthorOnPublish(ctx, &notification.Post{Type: "page", AuthorID: 10}, "draft", "publish")
	require.NoError(t, err)
	require.Empty(t, to)
}

func TestAuthorOnPublish_ReadsMobileFieldWithPhoneHandler(t *testing.T) {
	subs, users := fixture()
	r := New(subs, &UsePhoneField{Users: users, Meta: users}, Config{AuthorPostTypes: []string{"post"}})

	to, err := r.AuthorOnPublish(context.Background(), &notification.Post{Type: "post", AuthorID: 11}, "draft", "publish")
	require.NoError(t, err)
	require.Equal(t, []string{"+1111"}, to)
}

func TestUsePhoneField_ListMobilesLegacyFallback(t *testing.T) {
	subs, users := fixture()
	users.users = append(users.users, &user.User{ID: 13, Roles: []string{"customer"}})
	users.meta[13] = map[string]string{"_billing_phone": "+1313", "billing_phone": "+1300"}
	r := New(subs, &UsePhoneField{Users: users, Meta: users}, Config{PostTypes: []string{"post"}})

	to, _, err := r.PostPublished(context.Background(),
		&notification.Post{Type: "post", Status: "publish"},
		PostMeta{Receiver: ReceiverUsers, Roles: []string{"customer"}})
	require.NoError(t, err)
	require.Equal(t, []string{"+1199", "+1313"}, to)
}

func TestOrder(t *testing.T) {
	subs, users := fixture()
	r := New(subs, &UsePhoneField{Users: users, Meta: users}, Config{})
	ctx := context.Background()

	to, err := r.Order(ctx, &notification.Order{CustomerID: 11})
	require.NoError(t, err)
	require.Equal(t, []string{"+1199"}, to)

	to, err = r.Order(ctx, &notification.Order{Meta: map[string]string{"_billing_phone": "+77"}})
	require.NoError(t, err)
	require.Equal(t, []string{"+77"}, to)

	to, err = r.Order(ctx, &notification.Order{BillingPhone: "+88"})
	require.NoError(t, err)
	require.Equal(t, []string{"+88"}, to)
}

func TestNewMobileResolver(t *testing.T) {
	_, users := fixture()
	m, err := NewMobileResolver(HandlerUsePhoneField, users, users)
	require.NoError(t, err)
	require.Equal(t, "_billing_phone", m.FieldName())

	m, err = NewMobileResolver("", users, users)
	require.NoError(t, err)
	require.Equal(t, "mobile", m.FieldName())

	_, err = NewMobileResolver("sms_only", users, users)
	require.Error(t, err)
}
