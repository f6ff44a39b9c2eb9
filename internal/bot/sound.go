package bot

import (
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// каталог со звуками для хуков
var soundsDir = "sounds"

func PlaySoundFile(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		// start — откроет файл через ассоциированную программу
		cmd = exec.Command("cmd", "/C", "start", "", path)
	case "darwin":
		cmd = exec.Command("open", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	// не оставляем зомби-процесс
	go func() { _ = cmd.Wait() }()
	return nil
}

// коллбэк из строки hooks.on_death
func (b *Bot) callbackForSound(sound string) func() {
	s := strings.TrimSpace(sound)
	if s == "" || strings.EqualFold(s, "none") {
		return nil
	}
	path := filepath.Join(soundsDir, s) // ./sounds/<sound>

	return func() {
		if err := PlaySoundFile(path); err != nil {
			b.log.Warn("sound open error", zap.String("path", path), zap.Error(err))
		}
	}
}
