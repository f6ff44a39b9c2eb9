// Package bot — поведение Minecraft-бота поверх game.World.
//
// Бот:
//   - держит не больше одного активного режима (follow, protect, farm, fish,
//     mine, build, pvp, chest hunt, crop farm, explore); режим — это Activity,
//     у которой Tick вызывается по таймеру;
//   - в фоне ест, надевает лучшее снаряжение, подбирает предметы, следит за
//     соединением и публикует Status;
//   - после смерти возвращается на место через /tp (права проверяются по факту)
//     и восстанавливает режим;
//   - понимает команды в чате (английские и вьетнамские), остальное отдаёт ИИ.
//
// Жизненный цикл:
//
//	b := bot.New(world, bot.WithLogger(log), bot.WithNotifier(n))
//	_ = b.UseConfig("configs/bot.yaml")
//	if err := b.Start(ctx); err != nil { ... }
//	defer b.Stop()
//
// События клиента (OnChat, OnSpawn, OnDeath, OnPlayerJoined, ...) вызывающий
// код передаёт в бота сам.
//
// Конфигурация хранится в YAML (см. Config); файл перечитывается при изменении.
package bot
