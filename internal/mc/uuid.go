package mc

import (
	"crypto/md5"

	"github.com/google/uuid"
)

// OfflinePlayerUUID derives the UUID an offline-mode Minecraft server
// assigns a player purely from their username: the MD5 hash of
// "OfflinePlayer:"+name, with the version (3) and variant (RFC 4122,
// 10xx) bits overwritten, exactly as Java's UUID.nameUUIDFromBytes does.
//
// This does NOT use uuid.NewMD5: that helper namespaces the hash by
// hashing a 16-byte namespace UUID ahead of the data (RFC 4122 v3),
// which would hash different bytes than Java's bare
// MD5("OfflinePlayer:"+name) and produce the wrong UUID.
func OfflinePlayerUUID(name string) uuid.UUID {
	sum := md5.Sum([]byte("OfflinePlayer:" + name))
	sum[6] = (sum[6] & 0x0f) | 0x30 // version 3
	sum[8] = (sum[8] & 0x3f) | 0x80 // variant RFC 4122
	var u uuid.UUID
	copy(u[:], sum[:])
	return u
}
