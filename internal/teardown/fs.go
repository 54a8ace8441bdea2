package teardown

import "os"

type osFS struct{}

func (osFS) RemoveAll(path string) error { return os.RemoveAll(path) }
