package main

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/srg/gattd/internal/peripheral/goble"
	"github.com/srg/gattd/internal/testutils"
	"github.com/stretchr/testify/suite"
)

// CommandTestSuite runs gattd commands against a mock go-ble device.
// All cmd/gattd test suites should embed it.
type CommandTestSuite struct {
	suite.Suite

	Device        *testutils.MockDevice
	OpenedDevices []int

	originalFactory func(int) (goble.Device, error)
}

func (s *CommandTestSuite) SetupTest() {
	s.Device = testutils.NewMockDevice(1)
	s.OpenedDevices = nil

	s.originalFactory = goble.DeviceFactory
	goble.DeviceFactory = func(deviceID int) (goble.Device, error) {
		s.OpenedDevices = append(s.OpenedDevices, deviceID)
		return s.Device, nil
	}

	resetFlags(rootCmd.PersistentFlags())
	resetFlags(serveCmd.Flags())
	resetFlags(tableCmd.Flags())
}

func (s *CommandTestSuite) TearDownTest() {
	goble.DeviceFactory = s.originalFactory
}

// resetFlags undoes the previous execution; cobra keeps parsed values on package-level commands.
func resetFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

// ExecuteCommand runs the root command with args, returns output and error.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// WriteFile stores content in a temporary file and returns its path.
func (s *CommandTestSuite) WriteFile(name, content string) string {
	path := filepath.Join(s.T().TempDir(), name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}

// FixturePath returns the absolute path of a file under the project root.
func (s *CommandTestSuite) FixturePath(relPath string) string {
	data, err := testutils.LoadFixture(relPath)
	s.Require().NoError(err, "fixture %s MUST exist", relPath)
	return s.WriteFile(filepath.Base(relPath), string(data))
}
