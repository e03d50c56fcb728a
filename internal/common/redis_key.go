package common

import (
	"fmt"
)

func RedisKeyReplayGuard(entry string) string {
	return fmt.Sprintf("reward_replay_guard:%s", entry)
}

func RedisPatternReplayGuard() string {
	return RedisKeyReplayGuard("*")
}
