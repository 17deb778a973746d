package setup

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/gavsync/config"
	"github.com/vadiminshakov/gavsync/internal/state"
)

func TestAnswers_ConfigTmp(t *testing.T) {
	a := Answers{
		RPCURL:       " ws://node:8546 ",
		ContractName: "gavcoin",
		Source:       config.SourceKeystore,
		KeystoreDir:  "/keys",
		WebAddr:      ":9000",
		Ordering:     state.OrderingLastWriterWins.String(),
		ReadRetries:  "2",
		ReadTimeout:  "15s",
	}

	tmp, err := a.ConfigTmp()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, config.Write(path, tmp))

	conf, err := config.Parse([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, "ws://node:8546", conf.RPCURL)
	assert.Equal(t, "/keys", conf.Accounts.KeystoreDir)
	assert.Equal(t, state.OrderingLastWriterWins, conf.Sync.Ordering)
	assert.Equal(t, 2, conf.Sync.ReadRetries)
	assert.Equal(t, 15*time.Second, conf.Sync.ReadTimeout)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateAddress(""))
	assert.NoError(t, validateAddress("0x00000000000000000000000000000000000000f1"))
	assert.Error(t, validateAddress("registry"))

	assert.NoError(t, validateRetries("3"))
	assert.Error(t, validateRetries("-1"))
	assert.Error(t, validateRetries("many"))

	assert.Error(t, notEmpty("x")("  "))
}

func TestAnswers_ConfigTmpInvalid(t *testing.T) {
	_, err := Answers{ReadRetries: "x", ReadTimeout: "1s"}.ConfigTmp()
	assert.Error(t, err)
	_, err = Answers{ReadRetries: "1", ReadTimeout: "soon"}.ConfigTmp()
	assert.Error(t, err)
}
