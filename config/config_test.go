package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingBotToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingBotToken))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.BotToken)
	assert.EqualValues(t, 50, cfg.StarsPrice)
	assert.Equal(t, defaultProductURL, cfg.ProductURL)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.FulfillmentStore)
	assert.Equal(t, 20*time.Second, cfg.AssistantTimeout)
	assert.Equal(t, "purchase_events", cfg.KafkaTopic)
	assert.Empty(t, cfg.AssistantAPIKey)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("STARS_PRICE", "75")
	t.Setenv("PORT", "9090")
	t.Setenv("ASSISTANT_TIMEOUT", "5s")
	t.Setenv("FULFILLMENT_STORE", "Postgres")
	t.Setenv("DB_NAME", "bots")
	t.Setenv("OPERATOR_CHAT_ID", "-1001")

	cfg, err := Load()
	require.NoError(t, err)

	assert.EqualValues(t, 75, cfg.StarsPrice)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.AssistantTimeout)
	assert.Equal(t, "postgres", cfg.FulfillmentStore)
	assert.Contains(t, cfg.DB.DSN(), "dbname=bots")
	assert.EqualValues(t, -1001, cfg.OperatorChatID)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")

	t.Run("price", func(t *testing.T) {
		t.Setenv("STARS_PRICE", "0")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("store", func(t *testing.T) {
		t.Setenv("FULFILLMENT_STORE", "sqlite")
		_, err := Load()
		assert.Error(t, err)
	})
}
