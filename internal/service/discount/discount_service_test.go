package discount

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"prepcoach-service/internal/domain/discount"
	xerrors "prepcoach-service/internal/pkg/errors"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type memDiscountRepo struct {
	mu          sync.Mutex
	codes       map[string]*discount.Code
	redemptions map[int64]map[string]bool // codeID -> email set
	nextID      int64
}

func newMemDiscountRepo(codes ...*discount.Code) *memDiscountRepo {
	r := &memDiscountRepo{
		codes:       make(map[string]*discount.Code),
		redemptions: make(map[int64]map[string]bool),
		nextID:      1,
	}
	for _, c := range codes {
		c.ID = r.nextID
		r.nextID++
		r.codes[c.Code] = c
	}
	return r
}

func (r *memDiscountRepo) Create(ctx context.Context, c *discount.Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.codes[c.Code]; exists {
		return xerrors.ErrInvalidInput
	}
	c.ID = r.nextID
	r.nextID++
	r.codes[c.Code] = c
	return nil
}

func (r *memDiscountRepo) FindActiveByCode(ctx context.Context, code string) (*discount.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[strings.ToUpper(code)]
	if !ok || !c.Active {
		return nil, xerrors.ErrCodeNotFound
	}
	cp := *c
	return &cp, nil
}

// Reserve mirrors the storage-layer atomicity: the whole check-and-insert
// happens under one lock, the way the real repository locks the code row.
func (r *memDiscountRepo) Reserve(ctx context.Context, red *discount.Redemption, maxRedemptions *int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	emails := r.redemptions[red.CodeID]
	if emails == nil {
		emails = make(map[string]bool)
		r.redemptions[red.CodeID] = emails
	}
	if emails[red.Email] {
		return xerrors.ErrAlreadyRedeemed
	}
	if maxRedemptions != nil && int32(len(emails)) >= *maxRedemptions {
		return xerrors.ErrMaxRedemptionsReached
	}
	emails[red.Email] = true
	return nil
}

func (r *memDiscountRepo) redemptionCount(codeID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.redemptions[codeID])
}

func TestValidateAndReserveHappyPath(t *testing.T) {
	repo := newMemDiscountRepo(&discount.Code{Code: "LAUNCH20", Percent: 20, Active: true})
	svc := NewDiscountService(repo, zap.NewNop())

	c, err := svc.ValidateAndReserve(context.Background(), "launch20", "a@b.com", "full_mock")
	if err != nil {
		t.Fatalf("ValidateAndReserve failed: %v", err)
	}
	if c.Percent != 20 {
		t.Errorf("percent = %d, want 20", c.Percent)
	}
	if repo.redemptionCount(c.ID) != 1 {
		t.Errorf("redemptions = %d, want 1", repo.redemptionCount(c.ID))
	}
}

func TestValidateAndReserveUnknownCode(t *testing.T) {
	svc := NewDiscountService(newMemDiscountRepo(), zap.NewNop())

	if _, err := svc.ValidateAndReserve(context.Background(), "NOPE", "a@b.com", "full_mock"); !errors.Is(err, xerrors.ErrCodeNotFound) {
		t.Errorf("expected ErrCodeNotFound, got %v", err)
	}
}

func TestValidateAndReserveInactiveCode(t *testing.T) {
	repo := newMemDiscountRepo(&discount.Code{Code: "OLD", Percent: 10, Active: false})
	svc := NewDiscountService(repo, zap.NewNop())

	if _, err := svc.ValidateAndReserve(context.Background(), "OLD", "a@b.com", "full_mock"); !errors.Is(err, xerrors.ErrCodeNotFound) {
		t.Errorf("deactivated code should look like it does not exist, got %v", err)
	}
}

func TestValidateAndReserveWindow(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	yesterday := time.Now().Add(-24 * time.Hour)
	tomorrow := time.Now().Add(24 * time.Hour)

	repo := newMemDiscountRepo(
		&discount.Code{Code: "ENDED", Percent: 10, Active: true, ValidFrom: &past, ValidUntil: &yesterday},
		&discount.Code{Code: "SOON", Percent: 10, Active: true, ValidFrom: &tomorrow},
	)
	svc := NewDiscountService(repo, zap.NewNop())

	for _, code := range []string{"ENDED", "SOON"} {
		if _, err := svc.ValidateAndReserve(context.Background(), code, "a@b.com", "full_mock"); !errors.Is(err, xerrors.ErrCodeExpired) {
			t.Errorf("%s: expected ErrCodeExpired, got %v", code, err)
		}
	}

	c, _ := repo.FindActiveByCode(context.Background(), "ENDED")
	if repo.redemptionCount(c.ID) != 0 {
		t.Error("rejected validation must not record a redemption")
	}
}

func TestValidateAndReserveKindAllowList(t *testing.T) {
	repo := newMemDiscountRepo(&discount.Code{
		Code: "AUDIO10", Percent: 10, Active: true,
		ApplicableKinds: pq.StringArray{"audio_mock"},
	})
	svc := NewDiscountService(repo, zap.NewNop())

	if _, err := svc.ValidateAndReserve(context.Background(), "AUDIO10", "a@b.com", "quick_text"); !errors.Is(err, xerrors.ErrCodeNotApplicable) {
		t.Errorf("expected ErrCodeNotApplicable, got %v", err)
	}
	if _, err := svc.ValidateAndReserve(context.Background(), "AUDIO10", "a@b.com", "audio_mock"); err != nil {
		t.Errorf("allowed kind rejected: %v", err)
	}
}

func TestValidateAndReserveOncePerEmail(t *testing.T) {
	repo := newMemDiscountRepo(&discount.Code{Code: "ONCE", Percent: 10, Active: true})
	svc := NewDiscountService(repo, zap.NewNop())

	if _, err := svc.ValidateAndReserve(context.Background(), "ONCE", "a@b.com", "full_mock"); err != nil {
		t.Fatalf("first redemption failed: %v", err)
	}
	if _, err := svc.ValidateAndReserve(context.Background(), "ONCE", "a@b.com", "full_mock"); !errors.Is(err, xerrors.ErrAlreadyRedeemed) {
		t.Errorf("expected ErrAlreadyRedeemed, got %v", err)
	}
}

func TestConcurrentReservesRespectCap(t *testing.T) {
	one := int32(1)
	repo := newMemDiscountRepo(&discount.Code{Code: "LAST1", Percent: 50, Active: true, MaxRedemptions: &one})
	svc := NewDiscountService(repo, zap.NewNop())

	const n = 20
	var wg sync.WaitGroup
	var wins, capped int32
	var mu sync.Mutex

	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ValidateAndReserve(context.Background(), "LAST1", string(rune('a'+i))+"@b.com", "full_mock")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, xerrors.ErrMaxRedemptionsReached):
				capped++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
	if capped != n-1 {
		t.Errorf("capped = %d, want %d", capped, n-1)
	}
}

func TestCreateCodeNormalizes(t *testing.T) {
	repo := newMemDiscountRepo()
	svc := NewDiscountService(repo, zap.NewNop())

	c, err := svc.CreateCode(context.Background(), &discount.CreateCodeRequest{Code: "  launch20 ", Percent: 20})
	if err != nil {
		t.Fatalf("CreateCode failed: %v", err)
	}
	if c.Code != "LAUNCH20" {
		t.Errorf("code = %q, want LAUNCH20", c.Code)
	}
	if !c.Active {
		t.Error("new code should be active")
	}
}

func TestCreateCodeRejectsBadInput(t *testing.T) {
	svc := NewDiscountService(newMemDiscountRepo(), zap.NewNop())

	if _, err := svc.CreateCode(context.Background(), &discount.CreateCodeRequest{Code: "   ", Percent: 20}); !errors.Is(err, xerrors.ErrInvalidInput) {
		t.Errorf("blank code: expected ErrInvalidInput, got %v", err)
	}

	from := time.Now()
	until := from.Add(-time.Hour)
	if _, err := svc.CreateCode(context.Background(), &discount.CreateCodeRequest{
		Code: "BACKWARDS", Percent: 20, ValidFrom: &from, ValidUntil: &until,
	}); !errors.Is(err, xerrors.ErrInvalidInput) {
		t.Errorf("inverted window: expected ErrInvalidInput, got %v", err)
	}
}
