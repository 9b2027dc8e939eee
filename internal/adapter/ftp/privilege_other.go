//go:build !unix

package ftp

import "fmt"

func dropPrivileges(username, group string) error {
	if username == "" {
		return nil
	}
	return fmt.Errorf("privilege dropping is not supported on this platform")
}
