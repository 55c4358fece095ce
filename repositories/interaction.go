package repositories

import (
	"fmt"
	"log/slog"
	"stroll-lab/domain"
	"stroll-lab/errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const interactionPrefix = "interaction:"

type IInteractionRepository interface {
	StoreInteraction(interaction domain.Interaction) error
	ListInteractions(limit int) ([]domain.Interaction, error)
}

type InteractionRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewInteractionRepository(db *badger.DB, log *slog.Logger) InteractionRepository {
	return InteractionRepository{db: db, log: log}
}

// StoreInteraction persists an interaction in BadgerDB.
// The key is formatted as "interaction:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Keep two interactions of the same nanosecond apart.
func (r InteractionRepository) StoreInteraction(interaction domain.Interaction) error {
	key := fmt.Sprintf("%s%019d:%s", interactionPrefix, interaction.At.UnixNano(), interaction.ID)
	value, err := fromInteraction(interaction)
	if err != nil {
		return err
	}
	bytes, err := proto.Marshal(value)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// ListInteractions returns the newest interactions first.
// A limit of zero or less returns everything.
func (r InteractionRepository) ListInteractions(limit int) ([]domain.Interaction, error) {
	var values [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(interactionPrefix)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(append(prefix, 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(values) == limit {
				r.log.Debug("Maximum of interactions reached", "limit", limit)
				break
			}
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			values = append(values, value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	interactions := make([]domain.Interaction, 0, len(values))
	for _, b := range values {
		interaction, err := DecodeInteraction(b)
		if err != nil {
			return nil, err
		}
		interactions = append(interactions, interaction)
	}
	return interactions, nil
}

// DecodeInteraction turns a stored value back into an interaction.
func DecodeInteraction(b []byte) (domain.Interaction, error) {
	var value structpb.Struct
	if err := proto.Unmarshal(b, &value); err != nil {
		return domain.Interaction{}, fmt.Errorf("%w: %v", errors.ErrDecoding, err)
	}
	return toInteraction(&value)
}

func fromInteraction(interaction domain.Interaction) (*structpb.Struct, error) {
	fields := map[string]any{
		"id":   interaction.ID.String(),
		"type": string(interaction.Type),
		"at":   interaction.At.UTC().Format(time.RFC3339Nano),
	}
	if interaction.UserID != nil {
		fields["user_id"] = interaction.UserID.String()
	}
	return structpb.NewStruct(fields)
}

func toInteraction(value *structpb.Struct) (domain.Interaction, error) {
	fields := value.GetFields()
	id, err := uuid.Parse(fields["id"].GetStringValue())
	if err != nil {
		return domain.Interaction{}, fmt.Errorf("%w: id: %v", errors.ErrDecoding, err)
	}
	at, err := time.Parse(time.RFC3339Nano, fields["at"].GetStringValue())
	if err != nil {
		return domain.Interaction{}, fmt.Errorf("%w: at: %v", errors.ErrDecoding, err)
	}
	interaction := domain.Interaction{
		ID:   id,
		Type: domain.InteractionType(fields["type"].GetStringValue()),
		At:   at,
	}
	if raw, ok := fields["user_id"]; ok {
		userID, err := uuid.Parse(raw.GetStringValue())
		if err != nil {
			return domain.Interaction{}, fmt.Errorf("%w: user_id: %v", errors.ErrDecoding, err)
		}
		interaction.UserID = lo.ToPtr(userID)
	}
	return interaction, nil
}
