package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/lightclients/client/tendermint"
	"github.com/tendermint/lightclients/config"
	"github.com/tendermint/lightclients/internal/test/factory"
	"github.com/tendermint/lightclients/libs/cli"
	"github.com/tendermint/lightclients/libs/log"
	"github.com/tendermint/lightclients/light"
	"github.com/tendermint/lightclients/types"
)

const (
	chainID  = "testchain-1"
	storeKey = "ibc"
)

var (
	bTime  = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	nowArg = bTime.Add(time.Hour).Format(time.RFC3339)
)

// runCmd executes a fresh root command in home and returns its stdout.
func runCmd(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()

	env := &Env{Config: config.DefaultConfig(), Logger: log.NewNopLogger()}
	root := RootCommand(env)
	root.AddCommand(
		MakeInitCommand(env),
		MakeCreateClientCommand(env),
		MakeUpdateClientCommand(env),
		MakeVerifyMembershipCommand(env),
		MakeVerifyNonMembershipCommand(env),
		MakeStatusCommand(env),
		VersionCmd,
	)
	cmd := cli.PrepareBaseCmd(root, "LC", home)

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeInput writes bz to a file below dir and returns its path.
func writeInput(t *testing.T, dir, name string, bz []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, bz, 0600))
	return path
}

type testChain struct {
	keys  factory.PrivKeys
	vals  *types.ValidatorSet
	state *factory.MultiStore
}

func newTestChain() *testChain {
	keys := factory.GenPrivKeys(4)
	c := &testChain{keys: keys, vals: keys.ToValidators(10, 0), state: factory.NewMultiStore()}
	c.state.Set(storeKey, []byte("ports/transfer"), []byte("bound"))
	return c
}

func (c *testChain) header(t *testing.T, h int64, trusted types.Height) *tendermint.Header {
	return &tendermint.Header{
		SignedHeader:      c.keys.GenSignedHeader(t, chainID, h, bTime.Add(time.Duration(h)*time.Minute), c.vals, c.vals, c.state.Root(), 0, len(c.keys)),
		ValidatorSet:      c.vals,
		TrustedHeight:     trusted,
		TrustedValidators: c.vals,
	}
}

func (c *testChain) headerBytes(t *testing.T, h int64, trusted types.Height) []byte {
	t.Helper()
	bz, err := tendermint.MarshalClientMessage(c.header(t, h, trusted))
	require.NoError(t, err)
	return bz
}

func (c *testChain) clientState(h int64, trustingPeriod time.Duration) *tendermint.ClientState {
	return tendermint.NewClientState(chainID, light.DefaultTrustLevel, trustingPeriod, 2*trustingPeriod, 10*time.Second,
		types.NewHeight(1, uint64(h)), factory.MultiStoreSpecs, storeKey, nil)
}

func (c *testChain) states(t *testing.T, cs *tendermint.ClientState, h int64) (csBz, consBz []byte) {
	t.Helper()
	cons, err := tendermint.NewConsensusState(c.header(t, h, types.NewHeight(1, 1)).SignedHeader.Header)
	require.NoError(t, err)

	csBz, err = cs.Marshal()
	require.NoError(t, err)
	consBz, err = cons.Marshal()
	require.NoError(t, err)
	return csBz, consBz
}

// createClient creates a client trusting c at height 1 and returns the
// directory holding the input files.
func createClient(t *testing.T, home string, c *testChain) string {
	t.Helper()
	dir := t.TempDir()
	cs, cons := c.states(t, c.clientState(1, 2*time.Hour), 1)
	out, err := runCmd(t, home, "create-client",
		"--client-state", writeInput(t, dir, "cs", cs),
		"--consensus-state", writeInput(t, dir, "cons", cons),
		"--now", nowArg)
	require.NoError(t, err)
	require.Contains(t, out, "07-tendermint-0\n")
	return dir
}
