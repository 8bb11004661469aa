package overrides

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Hash field names, one per editable turbine field.
const (
	fieldName         = "name"
	fieldLatitude     = "latitude"
	fieldLongitude    = "longitude"
	fieldManufacturer = "manufacturer"
	fieldCapacityKW   = "capacityKW"
	fieldActive       = "active"
)

// removeConfirmed deletes each ARGV field/value pair from the hash only while
// the field still holds that value. Redis drops the key with its last field.
var removeConfirmed = redis.NewScript(`
local removed = 0
for i = 1, #ARGV, 2 do
  if redis.call("HGET", KEYS[1], ARGV[i]) == ARGV[i + 1] then
    removed = removed + redis.call("HDEL", KEYS[1], ARGV[i])
  end
end
return removed
`)

// Redis is a Store shared by every dashboard instance pointing at the same
// Redis/Valkey. Each turbine is one hash, so HSET gives per-field
// last-write-wins without a read-modify-write.
type Redis struct {
	client redis.Cmdable
	prefix string
}

// NewRedis creates a Redis-backed store. Keys are prefix + turbine id.
func NewRedis(client redis.Cmdable, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(id string) string {
	return r.prefix + id
}

func (r *Redis) Upsert(ctx context.Context, id string, changes domain.TurbineChanges) error {
	fields := encodeFields(changes)
	if len(fields) == 0 {
		return nil
	}
	if err := r.client.HSet(ctx, r.key(id), fields).Err(); err != nil {
		return fmt.Errorf("upsert override %s: %w", id, err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("clear override %s: %w", id, err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, id string) (domain.TurbineChanges, bool, error) {
	fields, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return domain.TurbineChanges{}, false, fmt.Errorf("get override %s: %w", id, err)
	}
	if len(fields) == 0 {
		return domain.TurbineChanges{}, false, nil
	}
	c, err := decodeFields(fields)
	if err != nil {
		return domain.TurbineChanges{}, false, fmt.Errorf("decode override %s: %w", id, err)
	}
	return c, true, nil
}

func (r *Redis) All(ctx context.Context) (map[string]domain.TurbineChanges, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, escapeGlob(r.prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan overrides: %w", err)
	}

	out := make(map[string]domain.TurbineChanges, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	pipe := r.client.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(keys))
	for _, k := range keys {
		cmds[strings.TrimPrefix(k, r.prefix)] = pipe.HGetAll(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}

	for id, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue // cleared between SCAN and HGETALL
		}
		c, err := decodeFields(fields)
		if err != nil {
			return nil, fmt.Errorf("decode override %s: %w", id, err)
		}
		out[id] = c
	}
	return out, nil
}

func (r *Redis) RemoveConfirmed(ctx context.Context, id string, confirmed domain.TurbineChanges) (bool, error) {
	fields := encodeFields(confirmed)
	if len(fields) == 0 {
		return false, nil
	}
	args := make([]any, 0, 2*len(fields))
	for k, v := range fields {
		args = append(args, k, v)
	}
	removed, err := removeConfirmed.Run(ctx, r.client, []string{r.key(id)}, args...).Int()
	if err != nil {
		return false, fmt.Errorf("remove confirmed override %s: %w", id, err)
	}
	return removed > 0, nil
}

// escapeGlob quotes the SCAN MATCH metacharacters so the prefix matches
// literally.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func encodeFields(c domain.TurbineChanges) map[string]any {
	fields := make(map[string]any, 6)
	if c.Name != nil {
		fields[fieldName] = *c.Name
	}
	if c.Latitude != nil {
		fields[fieldLatitude] = strconv.FormatFloat(*c.Latitude, 'g', -1, 64)
	}
	if c.Longitude != nil {
		fields[fieldLongitude] = strconv.FormatFloat(*c.Longitude, 'g', -1, 64)
	}
	if c.Manufacturer != nil {
		fields[fieldManufacturer] = *c.Manufacturer
	}
	if c.CapacityKW != nil {
		fields[fieldCapacityKW] = strconv.FormatFloat(*c.CapacityKW, 'g', -1, 64)
	}
	if c.Active != nil {
		fields[fieldActive] = strconv.FormatBool(*c.Active)
	}
	return fields
}

func decodeFields(fields map[string]string) (domain.TurbineChanges, error) {
	var c domain.TurbineChanges
	for k, v := range fields {
		switch k {
		case fieldName:
			c.Name = domain.Ptr(v)
		case fieldManufacturer:
			c.Manufacturer = domain.Ptr(v)
		case fieldLatitude, fieldLongitude, fieldCapacityKW:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return c, fmt.Errorf("field %s: %w", k, err)
			}
			switch k {
			case fieldLatitude:
				c.Latitude = &f
			case fieldLongitude:
				c.Longitude = &f
			default:
				c.CapacityKW = &f
			}
		case fieldActive:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return c, fmt.Errorf("field %s: %w", k, err)
			}
			c.Active = &b
		}
	}
	return c, nil
}
