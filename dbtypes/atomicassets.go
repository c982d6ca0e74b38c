package dbtypes

// Rows of the atomicassets domain tables. Json-typed columns carry serialized
// documents (jsonb on pgsql, text on sqlite).

type AssetCollection struct {
	Contract           string  `db:"contract"`
	CollectionName     string  `db:"collection_name"`
	Author             string  `db:"author"`
	AllowNotify        bool    `db:"allow_notify"`
	AuthorizedAccounts string  `db:"authorized_accounts"`
	NotifyAccounts     string  `db:"notify_accounts"`
	MarketFee          float64 `db:"market_fee"`
	Data               string  `db:"data"`
	CreatedAtBlock     uint64  `db:"created_at_block"`
	CreatedAtTime      int64   `db:"created_at_time"`
}

type AssetSchema struct {
	Contract       string `db:"contract"`
	CollectionName string `db:"collection_name"`
	SchemaName     string `db:"schema_name"`
	Format         string `db:"format"`
	CreatedAtBlock uint64 `db:"created_at_block"`
	CreatedAtTime  int64  `db:"created_at_time"`
}

type AssetTemplate struct {
	Contract       string `db:"contract"`
	TemplateId     uint64 `db:"template_id"`
	CollectionName string `db:"collection_name"`
	SchemaName     string `db:"schema_name"`
	Transferable   bool   `db:"transferable"`
	Burnable       bool   `db:"burnable"`
	MaxSupply      uint64 `db:"max_supply"`
	IssuedSupply   uint64 `db:"issued_supply"`
	ImmutableData  string `db:"immutable_data"`
	CreatedAtBlock uint64 `db:"created_at_block"`
	CreatedAtTime  int64  `db:"created_at_time"`
}

type Asset struct {
	Contract           string  `db:"contract"`
	AssetId            uint64  `db:"asset_id"`
	CollectionName     string  `db:"collection_name"`
	SchemaName         string  `db:"schema_name"`
	TemplateId         *uint64 `db:"template_id"`
	Owner              *string `db:"owner"`
	MutableData        string  `db:"mutable_data"`
	ImmutableData      string  `db:"immutable_data"`
	BackedTokens       string  `db:"backed_tokens"`
	BurnedByAccount    *string `db:"burned_by_account"`
	BurnedAtBlock      *uint64 `db:"burned_at_block"`
	TransferredAtBlock uint64  `db:"transferred_at_block"`
	UpdatedAtBlock     uint64  `db:"updated_at_block"`
	MintedAtBlock      uint64  `db:"minted_at_block"`
	MintedAtTime       int64   `db:"minted_at_time"`
}

type Offer struct {
	Contract       string `db:"contract"`
	OfferId        uint64 `db:"offer_id"`
	Sender         string `db:"sender"`
	Recipient      string `db:"recipient"`
	Memo           string `db:"memo"`
	State          uint8  `db:"state"`
	UpdatedAtBlock uint64 `db:"updated_at_block"`
	CreatedAtBlock uint64 `db:"created_at_block"`
	CreatedAtTime  int64  `db:"created_at_time"`
}

type OfferAsset struct {
	Contract string `db:"contract"`
	OfferId  uint64 `db:"offer_id"`
	Owner    string `db:"owner"`
	AssetId  uint64 `db:"asset_id"`
}

type Transfer struct {
	Contract       string `db:"contract"`
	TransferId     uint64 `db:"transfer_id"`
	Sender         string `db:"sender"`
	Recipient      string `db:"recipient"`
	Memo           string `db:"memo"`
	Txid           []byte `db:"txid"`
	CreatedAtBlock uint64 `db:"created_at_block"`
	CreatedAtTime  int64  `db:"created_at_time"`
}

type TransferAsset struct {
	Contract   string `db:"contract"`
	TransferId uint64 `db:"transfer_id"`
	AssetId    uint64 `db:"asset_id"`
}

type TokenBalance struct {
	Contract       string `db:"contract"`
	Owner          string `db:"owner"`
	TokenSymbol    string `db:"token_symbol"`
	TokenContract  string `db:"token_contract"`
	Amount         uint64 `db:"amount"`
	UpdatedAtBlock uint64 `db:"updated_at_block"`
}

type ContractConfig struct {
	Contract         string `db:"contract"`
	Version          string `db:"version"`
	CollectionFormat string `db:"collection_format"`
	SupportedTokens  string `db:"supported_tokens"`
}
