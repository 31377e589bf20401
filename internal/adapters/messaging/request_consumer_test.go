package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"creditflow/internal/adapters/persistence/repositories"
	"creditflow/internal/core/domain"
	"creditflow/internal/core/services"
	"creditflow/internal/pkg/logger"

	"github.com/shopspring/decimal"
)

type fakeService struct {
	mu        sync.Mutex
	evaluated []uint
	err       error
}

func (s *fakeService) Create(ctx context.Context, input services.CreateCreditRequestInput) (*domain.CreditRequest, error) {
	return nil, errors.New("not used")
}

func (s *fakeService) Evaluate(ctx context.Context, id uint) (*domain.CreditRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evaluated = append(s.evaluated, id)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.CreditRequest{ID: id, Status: domain.StatusApproved}, nil
}

func (s *fakeService) GetByID(ctx context.Context, id uint) (*domain.CreditRequest, error) {
	return nil, domain.ErrNotFound
}

func (s *fakeService) GetAll(ctx context.Context) ([]*domain.CreditRequest, error) {
	return nil, nil
}

type fakeSubscriber struct {
	topic    string
	messages [][]byte
	errs     []error
}

func (s *fakeSubscriber) Subscribe(ctx context.Context, topic string, handler Handler) error {
	s.topic = topic
	for _, m := range s.messages {
		s.errs = append(s.errs, handler(ctx, m))
	}
	return nil
}

func TestRequestConsumerHandle(t *testing.T) {
	valid := []byte(`{"requestId":7,"applicantIdentity":"john@x.com","amount":"5000"}`)

	tests := []struct {
		name      string
		body      []byte
		svcErr    error
		wantErr   bool
		evaluated int
	}{
		{"evaluates", valid, nil, false, 1},
		{"malformed json", []byte(`{not json`), nil, false, 0},
		{"missing id", []byte(`{"applicantIdentity":"a"}`), nil, false, 0},
		{"already decided", valid, domain.ErrInvalidState, false, 1},
		{"unknown request", valid, domain.ErrNotFound, false, 1},
		{"decision publish failed", valid, domain.NewBrokerError(domain.TopicCreditDecisions, errors.New("down")), false, 1},
		{"score provider down", valid, domain.ErrScoreProvider, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{err: tt.svcErr}
			c := NewRequestConsumer(&fakeSubscriber{}, svc, logger.Discard())

			err := c.Handle(context.Background(), tt.body)
			if (err != nil) != tt.wantErr {
				t.Errorf("Handle() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(svc.evaluated) != tt.evaluated {
				t.Errorf("Evaluate called %d times, want %d", len(svc.evaluated), tt.evaluated)
			}
			if tt.evaluated > 0 && svc.evaluated[0] != 7 {
				t.Errorf("evaluated id = %d, want 7", svc.evaluated[0])
			}
		})
	}
}

func TestRequestConsumerRun(t *testing.T) {
	sub := &fakeSubscriber{messages: [][]byte{
		[]byte(`{"requestId":1,"applicantIdentity":"a","amount":"1"}`),
		[]byte(`{"requestId":2,"applicantIdentity":"b","amount":2}`),
	}}
	svc := &fakeService{}
	c := NewRequestConsumer(sub, svc, logger.Discard())

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sub.topic != domain.TopicRequestCreated {
		t.Errorf("subscribed to %q", sub.topic)
	}
	if len(svc.evaluated) != 2 {
		t.Errorf("evaluated %v, want 2 requests", svc.evaluated)
	}
}

type fixedOracle struct{ score int }

func (o fixedOracle) GetScore(ctx context.Context, identity string) (domain.CreditScore, error) {
	return domain.NewCreditScore(o.score)
}

type countingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *countingPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func TestDuplicateDeliveriesDecideOnce(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryCreditRequestRepository()
	pub := &countingPublisher{}
	svc := services.NewCreditService(repo, fixedOracle{score: 750}, pub, services.WithLogger(logger.Discard()))

	req, err := svc.Create(ctx, services.CreateCreditRequestInput{
		ApplicantName:     "John Doe",
		ApplicantIdentity: "john@x.com",
		RequestedAmount:   decimal.NewFromInt(5000),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	body, _ := json.Marshal(domain.NewRequestCreated(req))
	c := NewRequestConsumer(&fakeSubscriber{}, svc, logger.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Handle(ctx, body); err != nil {
				t.Errorf("Handle() error = %v", err)
			}
		}()
	}
	wg.Wait()

	decisions := 0
	for _, topic := range pub.topics {
		if topic == domain.TopicCreditDecisions {
			decisions++
		}
	}
	if decisions != 1 {
		t.Errorf("published %d decisions, want 1", decisions)
	}

	stored, _ := repo.GetByID(ctx, req.ID)
	if stored.Status != domain.StatusApproved {
		t.Errorf("Status = %s, want Approved", stored.Status)
	}
}
