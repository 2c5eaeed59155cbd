package gitrun

import "os"

// lookupPathEnv and lookupHomeEnv forward the host PATH/HOME so git can
// still find credential helpers and SSH config while every other variable
// influencing its output (locale, pager, prompting) is pinned.
func lookupPathEnv() string {
	return os.Getenv("PATH")
}

func lookupHomeEnv() string {
	return os.Getenv("HOME")
}
