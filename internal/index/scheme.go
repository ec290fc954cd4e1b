package index

var (
	bCatalogs = []byte("catalogs") // "<catalog>/<locale>" -> sub-bucket
	bMeta     = []byte("meta")     // fingerprint, built_at

	bEntries    = []byte("entries")     // slug -> MergedEntry json
	bIdxCreated = []byte("idx_created") // invCreated + seq + 0x00 + slug
	bIdxUpdated = []byte("idx_updated") // invUpdated + seq + 0x00 + slug
	bIdxCat     = []byte("idx_cat")     // category -> sub-bucket (created keys)
	bIdxTag     = []byte("idx_tag")     // tag -> sub-bucket (created keys)

	kFingerprint = []byte("fingerprint")
	kBuiltAt     = []byte("built_at")
)

func namespace(catalog, locale string) []byte {
	return []byte(catalog + "/" + locale)
}
