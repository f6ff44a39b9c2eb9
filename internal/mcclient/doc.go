// Package mcclient реализует клиент Minecraft Java Edition (протокол 1.20.2,
// offline-режим) поверх github.com/Tnze/go-mc и модель мира вокруг бота.
// Клиент логинится на сервер, отвечает на keep-alive, принимает телепорты,
// хранит чанки, сущности, таб-лист и инвентарь, автоматически реконнектится
// и реализует интерфейс game.World:
//
//   - Chat, Goto/StopMoving (A* по блокам), LookAt, Attack, Interact,
//     Equip, Consume, Dig, PlaceBlock, OpenContainer, Sleep, Respawn.
//
// События (колбэки поля структуры):
//   - OnConnecting, OnConnected, OnSpawn, OnDisconnected, OnError, OnChat,
//     OnDeath, OnHealth, OnPlayerJoined, OnPlayerLeft.
//
// Безопасность и устойчивость:
//   - Запись в сокет сериализована мьютексом.
//   - Сторож активности рвёт соединение, если сервер молчит дольше 45с.
//     Дальше экспоненциальный реконнект (1с..30с, до MaxReconnects попыток);
//     бан, whitelist и дубль ника считаются критичными и не повторяются.
//
// Пример:
//
//	mc := mcclient.New(mcclient.Config{Server: "localhost", Username: "botlolicute"})
//	mc.OnChat = func(sender, text string) { fmt.Println(sender, text) }
//	ctx := context.Background()
//	if err := mc.Connect(ctx); err != nil { log.Fatal(err) }
//	defer mc.Disconnect()
//
//	_ = mc.Chat("hello")
//	_ = mc.Goto(ctx, game.V(100, 64, -20), 2)
package mcclient
