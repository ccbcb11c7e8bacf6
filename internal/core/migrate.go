package core

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/buger/jsonparser"
)

// legacyPack describes one of the flat platform field pairs older launcher
// versions wrote straight into instance.json
type legacyPack struct {
	platform   Platform
	projectKey string
	versionKey string
	ordinal    bool // version id doubles as the ranking key
	nameOnly   bool // version field holds a display name, not an id
}

// Order matters: the first pair present wins.
var legacyPacks = []legacyPack{
	{PlatformCurseForge, "curseForgeProjectId", "curseForgeFileId", true, false},
	{PlatformFTB, "ftbPackId", "ftbVersionId", true, false},
	{PlatformModrinth, "modrinthProjectId", "modrinthVersionId", false, false},
	{PlatformTechnic, "technicSlug", "technicVersion", false, true},
	{PlatformModpacksCh, "modpacksChPackId", "modpacksChVersionId", false, false},
}

// Migration is the result of upgrading a stored document
type Migration struct {
	Data      []byte
	Changed   bool
	Discarded []Platform // extra associations dropped to keep one pack per entity
}

// MigrateDocument rewrites a raw instance or server document into the current
// layout. Documents already in the current layout come back unchanged.
func MigrateDocument(data []byte) (Migration, error) {
	m := Migration{Data: data}

	if _, typ, _, err := jsonparser.Get(data); err != nil || typ != jsonparser.Object {
		return m, fmt.Errorf("document is not a JSON object")
	}

	if legacyID, typ, _, err := jsonparser.Get(m.Data, "uuid"); err == nil {
		if _, _, _, err := jsonparser.Get(m.Data, "id"); err == jsonparser.KeyPathNotFoundError && typ == jsonparser.String {
			if m.Data, err = jsonparser.Set(m.Data, quote(legacyID), "id"); err != nil {
				return m, fmt.Errorf("moving uuid: %w", err)
			}
		}
		m.Data = jsonparser.Delete(m.Data, "uuid")
		m.Changed = true
	}

	if _, _, _, err := jsonparser.Get(m.Data, "installedBy"); err == nil {
		m.Data = jsonparser.Delete(m.Data, "installedBy")
		m.Changed = true
	}

	_, packType, _, packErr := jsonparser.Get(m.Data, "pack")
	hasPack := packErr == nil && packType == jsonparser.Object

	var found *PackRef
	for _, lp := range legacyPacks {
		project, ok := scalar(m.Data, lp.projectKey)
		if !ok {
			continue
		}
		version, _ := scalar(m.Data, lp.versionKey)
		m.Data = jsonparser.Delete(m.Data, lp.projectKey)
		m.Data = jsonparser.Delete(m.Data, lp.versionKey)
		m.Changed = true

		if hasPack || found != nil {
			m.Discarded = append(m.Discarded, lp.platform)
			continue
		}

		ref := &PackRef{Platform: lp.platform, ProjectID: project}
		if lp.nameOnly {
			ref.VersionName = version
		} else {
			ref.VersionID = version
		}
		if lp.ordinal {
			ref.Ordinal, _ = strconv.ParseInt(version, 10, 64)
		}
		found = ref
	}

	if found != nil {
		packJSON, err := json.Marshal(found)
		if err != nil {
			return m, err
		}
		if m.Data, err = jsonparser.Set(m.Data, packJSON, "pack"); err != nil {
			return m, fmt.Errorf("writing pack: %w", err)
		}
	}

	return m, nil
}

// scalar reads a string or number field as a string. Empty strings, zero and
// null count as absent.
func scalar(data []byte, key string) (string, bool) {
	value, typ, _, err := jsonparser.Get(data, key)
	if err != nil {
		return "", false
	}
	switch typ {
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil || s == "" {
			return "", false
		}
		return s, true
	case jsonparser.Number:
		s := string(value)
		if s == "0" {
			return "", false
		}
		return s, true
	default:
		return "", false
	}
}

func quote(raw []byte) []byte {
	return append(append([]byte{'"'}, raw...), '"')
}
