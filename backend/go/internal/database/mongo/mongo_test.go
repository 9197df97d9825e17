package mongo

import (
	"testing"

	"Koro/backend/go/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestCollectionNameDefaults(t *testing.T) {
	db, coll := CollectionName(&config.MongoConfig{})
	assert.Equal(t, "koro", db)
	assert.Equal(t, "kv", coll)

	db, coll = CollectionName(&config.MongoConfig{Database: "prod", Collection: "state"})
	assert.Equal(t, "prod", db)
	assert.Equal(t, "state", coll)
}
