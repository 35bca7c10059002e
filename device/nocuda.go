//go:build !cuda

package device

func gpus() ([]GPU, int, error) {
	return nil, 0, nil
}
