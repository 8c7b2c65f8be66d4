package couple

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pairlink/pairlink-api/internal/domain/user"
)

// LifecycleNotifier publishes couple lifecycle events to the realtime relay.
// Delivery is best-effort: a room that nobody has joined yet is a no-op and
// clients reconcile via GetRelation on reconnect.
type LifecycleNotifier interface {
	CoupleBound(ctx context.Context, c *Couple, members []user.PublicIdentity)
	CoupleUnbound(ctx context.Context, coupleID uuid.UUID)
}

// Service handles couple pairing business logic
type Service struct {
	repo     Repository
	userRepo user.Repository
	notifier LifecycleNotifier // nil disables realtime notifications
}

// NewService creates couple service
func NewService(repo Repository, userRepo user.Repository, notifier LifecycleNotifier) *Service {
	return &Service{repo: repo, userRepo: userRepo, notifier: notifier}
}

// SendRequest upserts a bind request from fromID to toID.
// Re-sending refreshes the existing request's timestamp instead of
// creating a duplicate.
func (s *Service) SendRequest(ctx context.Context, fromID, toID uuid.UUID) (*BindRequest, error) {
	if toID == fromID {
		return nil, ErrSelfBind
	}

	target, err := s.userRepo.GetByID(ctx, toID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrUserNotFound
	}

	for _, id := range []uuid.UUID{fromID, toID} {
		existing, err := s.repo.GetActiveCoupleByUser(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrAlreadyPaired
		}
	}

	req := &BindRequest{
		ID:         uuid.New(),
		FromUserID: fromID,
		ToUserID:   toID,
		CreatedAt:  time.Now(),
	}
	return s.repo.UpsertRequest(ctx, req)
}

// ListPending returns all requests addressed to userID, newest first,
// each joined with the sender's public identity.
func (s *Service) ListPending(ctx context.Context, userID uuid.UUID) ([]*BindRequestResponse, error) {
	pending, err := s.repo.ListRequestsTo(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]*BindRequestResponse, len(pending))
	for i, p := range pending {
		from := &user.PublicIdentity{
			ID:        p.FromUserID,
			Nickname:  p.FromNickname,
			AvatarURL: p.FromAvatarURL,
		}
		items[i] = BindRequestResponseFromEntity(&p.BindRequest, from)
	}
	return items, nil
}

// Accept creates the couple for a pending request. actingUser must be
// the request's target.
func (s *Service) Accept(ctx context.Context, requestID, actingUser uuid.UUID) (*CoupleResponse, error) {
	req, err := s.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if req.ToUserID != actingUser {
		return nil, ErrNotRequestTarget
	}

	u1, u2 := OrderPair(req.FromUserID, req.ToUserID)
	c := &Couple{
		ID:        uuid.New(),
		User1ID:   u1,
		User2ID:   u2,
		IsActive:  true,
		CreatedAt: time.Now(),
	}

	if err := s.repo.AcceptRequest(ctx, c); err != nil {
		return nil, err
	}

	members, err := s.memberIdentities(ctx, c)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.CoupleBound(ctx, c, members)
	}

	return CoupleResponseFromEntity(c, identityOf(members, c.PartnerOf(actingUser))), nil
}

// Reject deletes a pending request. actingUser must be the request's
// target. Returns the original sender id for UI feedback.
func (s *Service) Reject(ctx context.Context, requestID, actingUser uuid.UUID) (uuid.UUID, error) {
	req, err := s.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		return uuid.Nil, err
	}
	if req == nil {
		return uuid.Nil, ErrRequestNotFound
	}
	if req.ToUserID != actingUser {
		return uuid.Nil, ErrNotRequestTarget
	}

	if err := s.repo.DeleteRequest(ctx, req.ID); err != nil {
		return uuid.Nil, err
	}

	return req.FromUserID, nil
}

// GetRelation returns the active couple containing userID with the
// other member attached as partner, or nil if none exists.
func (s *Service) GetRelation(ctx context.Context, userID uuid.UUID) (*CoupleResponse, error) {
	c, err := s.repo.GetActiveCoupleByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}

	partner, err := s.userRepo.GetByID(ctx, c.PartnerOf(userID))
	if err != nil {
		return nil, err
	}

	var identity *user.PublicIdentity
	if partner != nil {
		p := partner.Identity()
		identity = &p
	}
	return CoupleResponseFromEntity(c, identity), nil
}

// ValidateCouple reports whether an active couple with the given id
// exists and userID is one of its members.
func (s *Service) ValidateCouple(ctx context.Context, coupleID, userID uuid.UUID) (bool, error) {
	c, err := s.repo.GetCoupleByID(ctx, coupleID)
	if err != nil {
		return false, err
	}
	return c != nil && c.IsActive && c.HasMember(userID), nil
}

// Unbind destroys the active couple containing userID along with every
// event it owns.
func (s *Service) Unbind(ctx context.Context, userID uuid.UUID) error {
	c, err := s.repo.GetActiveCoupleByUser(ctx, userID)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrNoActiveCouple
	}

	if err := s.repo.DeleteCouple(ctx, c.ID); err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.CoupleUnbound(ctx, c.ID)
	}

	return nil
}

func (s *Service) memberIdentities(ctx context.Context, c *Couple) ([]user.PublicIdentity, error) {
	members := make([]user.PublicIdentity, 0, 2)
	for _, id := range []uuid.UUID{c.User1ID, c.User2ID} {
		u, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if u == nil {
			members = append(members, user.PublicIdentity{ID: id})
			continue
		}
		members = append(members, u.Identity())
	}
	return members, nil
}

func identityOf(members []user.PublicIdentity, id uuid.UUID) *user.PublicIdentity {
	for i := range members {
		if members[i].ID == id {
			return &members[i]
		}
	}
	return nil
}
