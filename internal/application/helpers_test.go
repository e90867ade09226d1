package application

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stayhub/service-rental/internal/domain/property"
	"github.com/stayhub/service-rental/internal/domain/user"
)

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

type bookingFixture struct {
	svc        *BookingService
	bookings   *fakeBookingRepo
	properties *fakePropertyRepo
	users      *fakeUserRepo
	gateway    *fakeGateway
	publisher  *fakePublisher
	guest      *user.User
	property   *property.Property
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	f := &bookingFixture{
		bookings:  newFakeBookingRepo(),
		users:     newFakeUserRepo(),
		gateway:   newFakeGateway(),
		publisher: &fakePublisher{},
	}
	f.properties = newFakePropertyRepo(f.bookings)

	guest, err := user.NewUser("Guest", "guest@example.com", "hash", "")
	require.NoError(t, err)
	require.NoError(t, f.users.Save(context.Background(), guest))
	f.guest = guest

	f.property = f.addProperty(t, uuid.New(), 100)

	f.svc = NewBookingService(f.bookings, f.properties, f.users, f.gateway, f.publisher,
		BookingOptions{Currency: "inr", GatewayTimeout: time.Second}, zap.NewNop())
	return f
}

func (f *bookingFixture) addProperty(t *testing.T, ownerID uuid.UUID, price float64) *property.Property {
	t.Helper()
	p, err := property.NewProperty(ownerID, property.Details{Name: "Loft", City: "Goa", Capacity: 4}, property.Location{}, price)
	require.NoError(t, err)
	require.NoError(t, f.properties.Save(context.Background(), p))
	return p
}

func (f *bookingFixture) create(t *testing.T, checkIn, checkOut string) *CheckoutDTO {
	t.Helper()
	out, err := f.svc.CreateBooking(context.Background(), f.guest.ID(), CreateBookingRequest{
		PropertyID: f.property.ID(),
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		GuestCount: 2,
	})
	require.NoError(t, err)
	return out
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
