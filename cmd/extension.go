package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

const (
	EnvDB              = "CGT_DB"
	EnvDefaultCurrency = "CGT_CURRENCY"
	EnvVerbose         = "CGT_VERBOSE"
)

// RunExtension attempts to find and execute an external cgt-<subcommand> binary.
// It returns (true, exitCode) if an extension was found and executed,
// and (false, 0) if no extension was found or executed.
//
// Global flags are passed to the extension as environment variables.
func RunExtension(subcommand string, args []string) (bool, int) {
	externalCmdName := "cgt-" + subcommand

	lp, err := exec.LookPath(externalCmdName)
	if err != nil {
		l := Logger()
		l.Debug().Str("command", externalCmdName).Err(err).Msg("no extension in PATH")
		return false, 0
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	cmd.Env = os.Environ()
	cmd.Env = append(cmd.Env, EnvDB+"="+*dbPath)
	cmd.Env = append(cmd.Env, EnvDefaultCurrency+"="+*defaultCurrency)
	cmd.Env = append(cmd.Env, EnvVerbose+"="+strconv.FormatBool(*Verbose))

	if err := cmd.Run(); err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			if status, ok := exitError.Sys().(syscall.WaitStatus); ok {
				return true, status.ExitStatus()
			}
		}
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", externalCmdName, err)
		return true, 1
	}
	return true, 0
}
