// Package logging provides flame's leveled console logger.
package logging

import (
	"fmt"
	"log"

	"github.com/shmup/flamethrower/internal/config"
)

// 0: OFF, 1: ERR, 2: WARN, 3: INFO, 4: DEBUG, 5: ALL
func Println(lvl int, prefix interface{}, v ...any) {
	if lvl > config.Cfg.Verbosity {
		return
	}
	u := []any{}
	switch lvl {
	case 1:
		u = append(u, "ERR  ")
	case 2:
		u = append(u, "WARN ")
	case 3:
		u = append(u, "INFO ")
	case 4:
		u = append(u, "DEBUG")
	case 5:
		u = append(u, "ALL  ")
	default:
		u = append(u, "     ")
	}
	if prefix != nil && prefix != "" {
		u = append(u, "["+fmt.Sprintf("%v", prefix)+"]")
	}
	u = append(u, v...)
	log.Println(u...)
}
