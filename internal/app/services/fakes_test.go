package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/agrolink/messaging/internal/app/models"
	"github.com/agrolink/messaging/internal/app/repositories"
	"github.com/agrolink/messaging/internal/pkg/websocket"
)

// In-memory repository fakes. They mirror the persistence-layer contract the
// services rely on, including (nil, nil) for absent rows and unique-violation
// errors carrying the constraint name.

type memStore struct {
	mu sync.Mutex

	nextID        int64
	conversations map[int64]*models.Conversation
	participants  []*models.ConversationParticipant
	messages      map[int64]*models.Message
	attachments   []*models.MessageAttachment
	reactions     []*models.MessageReaction
	users         map[int64]*models.User
}

func newMemStore() *memStore {
	return &memStore{
		nextID:        1,
		conversations: make(map[int64]*models.Conversation),
		messages:      make(map[int64]*models.Message),
		users:         make(map[int64]*models.User),
	}
}

func (s *memStore) id() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *memStore) addUser(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = &models.User{ID: id, DisplayName: name}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func directKey(buyerID, sellerID int64, productID *int64) [3]int64 {
	var p int64
	if productID != nil {
		p = *productID
	}
	return [3]int64{buyerID, sellerID, p}
}

// --- ConversationRepository ---

type fakeConversationRepo struct{ store *memStore }

func (r *fakeConversationRepo) GetByID(ctx context.Context, id int64) (*models.Conversation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.conversations[id]
	if !ok {
		return nil, nil
	}
	clone := *c
	return &clone, nil
}

func (r *fakeConversationRepo) FindDirect(ctx context.Context, userA, userB int64, productID *int64) (*models.Conversation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.findDirectLocked(userA, userB, productID), nil
}

func (r *fakeConversationRepo) findDirectLocked(userA, userB int64, productID *int64) *models.Conversation {
	want1 := directKey(userA, userB, productID)
	want2 := directKey(userB, userA, productID)
	for _, c := range r.store.conversations {
		if c.Kind != models.ConversationKindDirect {
			continue
		}
		key := directKey(*c.BuyerID, *c.SellerID, c.ProductID)
		if key == want1 || key == want2 {
			clone := *c
			return &clone
		}
	}
	return nil
}

func (r *fakeConversationRepo) CreateDirect(ctx context.Context, buyerID, sellerID int64, productID *int64) (*models.Conversation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.findDirectLocked(buyerID, sellerID, productID) != nil {
		return nil, uniqueViolation(repositories.ConstraintDirectConversationPair)
	}

	now := time.Now()
	c := &models.Conversation{
		ID:        r.store.id(),
		Kind:      models.ConversationKindDirect,
		BuyerID:   &buyerID,
		SellerID:  &sellerID,
		ProductID: productID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.store.conversations[c.ID] = c

	for _, userID := range []int64{buyerID, sellerID} {
		r.store.participants = append(r.store.participants, &models.ConversationParticipant{
			ID:             r.store.id(),
			ConversationID: c.ID,
			UserID:         userID,
			Role:           models.ParticipantRoleMember,
			JoinedAt:       now,
		})
	}

	clone := *c
	return &clone, nil
}

func (r *fakeConversationRepo) CreateGroup(ctx context.Context, conversation *models.Conversation, participants []*models.ConversationParticipant) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	conversation.ID = r.store.id()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now
	clone := *conversation
	r.store.conversations[conversation.ID] = &clone

	for _, p := range participants {
		p.ID = r.store.id()
		p.ConversationID = conversation.ID
		p.JoinedAt = now
		pc := *p
		r.store.participants = append(r.store.participants, &pc)
	}
	return nil
}

func (r *fakeConversationRepo) ListForUser(ctx context.Context, userID int64) ([]*models.ConversationSummary, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var summaries []*models.ConversationSummary
	for _, p := range r.store.participants {
		if p.UserID != userID || p.IsArchived {
			continue
		}
		c := r.store.conversations[p.ConversationID]
		summary := &models.ConversationSummary{
			Conversation: *c,
			IsPinned:     p.IsPinned,
			IsArchived:   p.IsArchived,
			LastReadAt:   p.LastReadAt,
		}
		for _, m := range r.store.messages {
			if m.ConversationID == c.ID && m.SenderID != userID && !m.ReadBy(p.LastReadAt) {
				summary.UnreadCount++
			}
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].IsPinned != summaries[j].IsPinned {
			return summaries[i].IsPinned
		}
		return activityTime(summaries[i]).After(activityTime(summaries[j]))
	})
	return summaries, nil
}

func activityTime(s *models.ConversationSummary) time.Time {
	if s.LastMessageAt != nil {
		return *s.LastMessageAt
	}
	return s.CreatedAt
}

// --- ParticipantRepository ---

type fakeParticipantRepo struct{ store *memStore }

func (r *fakeParticipantRepo) find(conversationID, userID int64) *models.ConversationParticipant {
	for _, p := range r.store.participants {
		if p.ConversationID == conversationID && p.UserID == userID {
			return p
		}
	}
	return nil
}

func (r *fakeParticipantRepo) GetParticipant(ctx context.Context, conversationID, userID int64) (*models.ConversationParticipant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p := r.find(conversationID, userID)
	if p == nil {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (r *fakeParticipantRepo) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.find(conversationID, userID) != nil, nil
}

func (r *fakeParticipantRepo) Add(ctx context.Context, participant *models.ConversationParticipant) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.find(participant.ConversationID, participant.UserID) != nil {
		return uniqueViolation(repositories.ConstraintParticipantMember)
	}
	participant.ID = r.store.id()
	participant.JoinedAt = time.Now()
	clone := *participant
	r.store.participants = append(r.store.participants, &clone)
	return nil
}

func (r *fakeParticipantRepo) ListByConversation(ctx context.Context, conversationID int64) ([]*models.ConversationParticipant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.ConversationParticipant
	for _, p := range r.store.participants {
		if p.ConversationID == conversationID {
			clone := *p
			clone.User = r.store.users[p.UserID]
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeParticipantRepo) ListConversationIDsByUser(ctx context.Context, userID int64) ([]int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var ids []int64
	for _, p := range r.store.participants {
		if p.UserID == userID {
			ids = append(ids, p.ConversationID)
		}
	}
	return ids, nil
}

func (r *fakeParticipantRepo) SetArchived(ctx context.Context, conversationID, userID int64, archived bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if p := r.find(conversationID, userID); p != nil {
		p.IsArchived = archived
	}
	return nil
}

func (r *fakeParticipantRepo) SetPinned(ctx context.Context, conversationID, userID int64, pinned bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if p := r.find(conversationID, userID); p != nil {
		p.IsPinned = pinned
	}
	return nil
}

func (r *fakeParticipantRepo) UpdateLastRead(ctx context.Context, conversationID, userID int64, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if p := r.find(conversationID, userID); p != nil {
		p.LastReadAt = &at
	}
	return nil
}

// --- MessageRepository ---

type fakeMessageRepo struct{ store *memStore }

func (r *fakeMessageRepo) Create(ctx context.Context, message *models.Message, attachments []*models.MessageAttachment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	message.ID = r.store.id()
	message.Status = models.MessageStatusSent
	message.CreatedAt = now

	if message.ReplyToID != nil {
		parent := r.store.messages[*message.ReplyToID]
		parent.ReplyCount++
	}

	clone := *message
	r.store.messages[message.ID] = &clone

	for _, a := range attachments {
		a.ID = r.store.id()
		a.MessageID = message.ID
		ac := *a
		r.store.attachments = append(r.store.attachments, &ac)
	}

	conv := r.store.conversations[message.ConversationID]
	conv.LastMessageAt = &now
	conv.UpdatedAt = now
	return nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.messages[id]
	if !ok {
		return nil, nil
	}
	clone := *m
	return &clone, nil
}

func (r *fakeMessageRepo) ListByConversation(ctx context.Context, conversationID int64, before *time.Time, limit int) ([]*models.Message, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*models.Message
	for _, m := range r.store.messages {
		if m.ConversationID != conversationID {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		clone := *m
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeMessageRepo) ListThread(ctx context.Context, parentID int64) ([]*models.Message, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*models.Message
	for _, m := range r.store.messages {
		if m.ReplyToID != nil && *m.ReplyToID == parentID {
			clone := *m
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeMessageRepo) UpdateStatus(ctx context.Context, id int64, status models.MessageStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if m, ok := r.store.messages[id]; ok {
		m.Status = status
	}
	return nil
}

func (r *fakeMessageRepo) UpdateContent(ctx context.Context, id int64, content string, editedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if m, ok := r.store.messages[id]; ok {
		m.Content = content
		m.EditedAt = &editedAt
	}
	return nil
}

func (r *fakeMessageRepo) Search(ctx context.Context, userID int64, query string, conversationID *int64, limit int) ([]*models.Message, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	member := make(map[int64]bool)
	for _, p := range r.store.participants {
		if p.UserID == userID {
			member[p.ConversationID] = true
		}
	}

	var out []*models.Message
	for _, m := range r.store.messages {
		if !member[m.ConversationID] {
			continue
		}
		if conversationID != nil && m.ConversationID != *conversationID {
			continue
		}
		if !strings.Contains(strings.ToLower(m.Content), strings.ToLower(query)) {
			continue
		}
		clone := *m
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- AttachmentRepository ---

type fakeAttachmentRepo struct{ store *memStore }

func (r *fakeAttachmentRepo) Create(ctx context.Context, attachment *models.MessageAttachment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	attachment.ID = r.store.id()
	clone := *attachment
	r.store.attachments = append(r.store.attachments, &clone)
	return nil
}

func (r *fakeAttachmentRepo) ListByMessageIDs(ctx context.Context, messageIDs []int64) (map[int64][]*models.MessageAttachment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	want := make(map[int64]bool, len(messageIDs))
	for _, id := range messageIDs {
		want[id] = true
	}
	out := make(map[int64][]*models.MessageAttachment)
	for _, a := range r.store.attachments {
		if want[a.MessageID] {
			clone := *a
			out[a.MessageID] = append(out[a.MessageID], &clone)
		}
	}
	return out, nil
}

// --- ReactionRepository ---

type fakeReactionRepo struct{ store *memStore }

func (r *fakeReactionRepo) Add(ctx context.Context, reaction *models.MessageReaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.reactions {
		if existing.MessageID == reaction.MessageID &&
			existing.UserID == reaction.UserID &&
			existing.Emoji == reaction.Emoji {
			return uniqueViolation(repositories.ConstraintReactionTriple)
		}
	}
	clone := *reaction
	r.store.reactions = append(r.store.reactions, &clone)
	return nil
}

func (r *fakeReactionRepo) Remove(ctx context.Context, messageID, userID int64, emoji string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i, existing := range r.store.reactions {
		if existing.MessageID == messageID && existing.UserID == userID && existing.Emoji == emoji {
			r.store.reactions = append(r.store.reactions[:i], r.store.reactions[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeReactionRepo) ListByMessageIDs(ctx context.Context, messageIDs []int64) (map[int64][]*models.MessageReaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	want := make(map[int64]bool, len(messageIDs))
	for _, id := range messageIDs {
		want[id] = true
	}
	out := make(map[int64][]*models.MessageReaction)
	for _, rx := range r.store.reactions {
		if want[rx.MessageID] {
			clone := *rx
			out[rx.MessageID] = append(out[rx.MessageID], &clone)
		}
	}
	return out, nil
}

// --- UserRepository ---

type fakeUserRepo struct{ store *memStore }

func (r *fakeUserRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, nil
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) FindByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make(map[int64]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := r.store.users[id]; ok {
			clone := *u
			out[id] = &clone
		}
	}
	return out, nil
}

// fakePusher records realtime pushes instead of delivering them.
type fakePusher struct {
	mu         sync.Mutex
	broadcasts []pushedEvent
	notified   []pushedEvent
	subs       map[int64][]int64
}

type pushedEvent struct {
	event  *websocket.Event
	userID int64 // excluded user for broadcasts, target user for notifies
}

func newFakePusher() *fakePusher {
	return &fakePusher{subs: make(map[int64][]int64)}
}

func (p *fakePusher) BroadcastToConversation(event *websocket.Event, excludeUserID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcasts = append(p.broadcasts, pushedEvent{event: event, userID: excludeUserID})
}

func (p *fakePusher) NotifyUser(userID int64, event *websocket.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notified = append(p.notified, pushedEvent{event: event, userID: userID})
}

func (p *fakePusher) SubscribeUser(userID, conversationID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs[userID] = append(p.subs[userID], conversationID)
}

// notifiedTo returns the events delivered to a single user, in order.
func (p *fakePusher) notifiedTo(userID int64) []*websocket.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var events []*websocket.Event
	for _, n := range p.notified {
		if n.userID == userID {
			events = append(events, n.event)
		}
	}
	return events
}

// --- test fixture ---

type fixture struct {
	store         *memStore
	conversations *fakeConversationRepo
	participants  *fakeParticipantRepo
	messages      *fakeMessageRepo
	attachments   *fakeAttachmentRepo
	reactions     *fakeReactionRepo
	users         *fakeUserRepo
	pusher        *fakePusher

	conversationService ConversationService
	messageService      MessageService
}

func newFixture() *fixture {
	store := newMemStore()
	f := &fixture{
		store:         store,
		conversations: &fakeConversationRepo{store: store},
		participants:  &fakeParticipantRepo{store: store},
		messages:      &fakeMessageRepo{store: store},
		attachments:   &fakeAttachmentRepo{store: store},
		reactions:     &fakeReactionRepo{store: store},
		users:         &fakeUserRepo{store: store},
		pusher:        newFakePusher(),
	}

	logger := zerolog.Nop()
	f.conversationService = NewConversationService(f.conversations, f.participants, f.users, f.pusher, logger)
	f.messageService = NewMessageService(f.conversations, f.participants, f.messages, f.attachments, f.reactions, f.users, f.pusher, logger)
	return f
}
