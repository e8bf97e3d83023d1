package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/custody-gateway/internal/domain/repository"
)

type accountDocument struct {
	ID               string    `bson:"_id"`
	Network          string    `bson:"network"`
	Identity         string    `bson:"identity"`
	SecretDigest     string    `bson:"secret_digest"`
	APIToken         string    `bson:"api_token"`
	Balance          string    `bson:"balance"`
	CustodyReference *string   `bson:"custody_reference,omitempty"`
	WebhookURL       *string   `bson:"webhook_url,omitempty"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

func (d *accountDocument) toEntity() (*entity.Account, error) {
	balance, err := decimal.NewFromString(d.Balance)
	if err != nil {
		return nil, fmt.Errorf("invalid stored balance %q: %w", d.Balance, err)
	}
	return &entity.Account{
		ID:               d.ID,
		Network:          d.Network,
		Identity:         d.Identity,
		SecretDigest:     d.SecretDigest,
		APIToken:         d.APIToken,
		Balance:          balance,
		CustodyReference: d.CustodyReference,
		WebhookURL:       d.WebhookURL,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}, nil
}

func accountToDocument(a *entity.Account) *accountDocument {
	return &accountDocument{
		ID:               a.ID,
		Network:          a.Network,
		Identity:         a.Identity,
		SecretDigest:     a.SecretDigest,
		APIToken:         a.APIToken,
		Balance:          a.Balance.String(),
		CustodyReference: a.CustodyReference,
		WebhookURL:       a.WebhookURL,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

type accountRepository struct {
	conn   Conn
	logger *zap.Logger
}

func NewAccountRepository(conn Conn, logger *zap.Logger) repository.AccountRepository {
	return &accountRepository{
		conn:   conn,
		logger: logger,
	}
}

func (r *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	coll, err := collection(ctx, r.conn, accountsCollection)
	if err != nil {
		return err
	}

	if _, err := coll.InsertOne(ctx, accountToDocument(account)); err != nil {
		err = translateError(err, repository.FieldUnknown)
		if errors.Is(err, repository.ErrDuplicateKey) {
			return err
		}
		r.logger.Error("Failed to create account",
			zap.String("identity", account.Identity),
			zap.Error(err))
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *accountRepository) findOne(ctx context.Context, filter bson.M) (*entity.Account, error) {
	coll, err := collection(ctx, r.conn, accountsCollection)
	if err != nil {
		return nil, err
	}

	var doc accountDocument
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return doc.toEntity()
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *accountRepository) GetByIdentity(ctx context.Context, network, identity string) (*entity.Account, error) {
	return r.findOne(ctx, bson.M{"network": network, "identity": identity})
}

func (r *accountRepository) GetByAPIToken(ctx context.Context, token string) (*entity.Account, error) {
	return r.findOne(ctx, bson.M{"api_token": token})
}

func (r *accountRepository) AssignCustodyReference(ctx context.Context, id, reference string) error {
	coll, err := collection(ctx, r.conn, accountsCollection)
	if err != nil {
		return err
	}

	res, err := coll.UpdateOne(ctx,
		bson.M{"_id": id, "custody_reference": nil},
		bson.M{"$set": bson.M{"custody_reference": reference, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		err = translateError(err, repository.FieldCustodyReference)
		if errors.Is(err, repository.ErrDuplicateKey) {
			return err
		}
		return fmt.Errorf("failed to assign custody reference: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return repository.ErrNotFound
	}
	return repository.ErrAlreadyAssigned
}

func (r *accountRepository) set(ctx context.Context, id string, fields bson.M) error {
	coll, err := collection(ctx, r.conn, accountsCollection)
	if err != nil {
		return err
	}

	fields["updated_at"] = time.Now().UTC()
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *accountRepository) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	return r.set(ctx, id, bson.M{"balance": balance.String()})
}

func (r *accountRepository) UpdateWebhookURL(ctx context.Context, id string, url string) error {
	return r.set(ctx, id, bson.M{"webhook_url": url})
}

func (r *accountRepository) ListWithoutCustody(ctx context.Context, network string, limit int) ([]*entity.Account, error) {
	coll, err := collection(ctx, r.conn, accountsCollection)
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := coll.Find(ctx, bson.M{"network": network, "custody_reference": nil}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts without custody: %w", err)
	}

	var docs []accountDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}

	accounts := make([]*entity.Account, 0, len(docs))
	for i := range docs {
		a, err := docs[i].toEntity()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}
