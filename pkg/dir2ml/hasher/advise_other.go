//go:build !linux

package hasher

import "os"

func adviseSequential(*os.File) {}
