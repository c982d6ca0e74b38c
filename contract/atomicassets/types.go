package atomicassets

// Typed views of the ABI-decoded payloads this handler consumes. Field names
// follow the atomicassets ABI. Serialized metadata stays in its chain-side
// byte form (hex string after ABI decode) and is stored as-is.

type collectionRow struct {
	CollectionName     string   `json:"collection_name"`
	Author             string   `json:"author"`
	AllowNotify        bool     `json:"allow_notify"`
	AuthorizedAccounts []string `json:"authorized_accounts"`
	NotifyAccounts     []string `json:"notify_accounts"`
	MarketFee          float64  `json:"market_fee"`
	SerializedData     string   `json:"serialized_data"`
}

type schemaFormat struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type schemaRow struct {
	SchemaName string         `json:"schema_name"`
	Format     []schemaFormat `json:"format"`
}

type templateRow struct {
	TemplateId              uint64 `json:"template_id"`
	SchemaName              string `json:"schema_name"`
	Transferable            bool   `json:"transferable"`
	Burnable                bool   `json:"burnable"`
	MaxSupply               uint64 `json:"max_supply"`
	IssuedSupply            uint64 `json:"issued_supply"`
	ImmutableSerializedData string `json:"immutable_serialized_data"`
}

type assetRow struct {
	AssetId                 uint64   `json:"asset_id"`
	CollectionName          string   `json:"collection_name"`
	SchemaName              string   `json:"schema_name"`
	TemplateId              int64    `json:"template_id"`
	RamPayer                string   `json:"ram_payer"`
	BackedTokens            []string `json:"backed_tokens"`
	ImmutableSerializedData string   `json:"immutable_serialized_data"`
	MutableSerializedData   string   `json:"mutable_serialized_data"`
}

type offerRow struct {
	OfferId           uint64   `json:"offer_id"`
	Sender            string   `json:"offer_sender"`
	Recipient         string   `json:"offer_recipient"`
	SenderAssetIds    []uint64 `json:"sender_asset_ids"`
	RecipientAssetIds []uint64 `json:"recipient_asset_ids"`
	Memo              string   `json:"memo"`
	RamPayer          string   `json:"ram_payer"`
}

type balanceRow struct {
	Owner      string   `json:"owner"`
	Quantities []string `json:"quantities"`
}

type configRow struct {
	AssetCounter     uint64           `json:"asset_counter"`
	TemplateCounter  uint64           `json:"template_counter"`
	OfferCounter     uint64           `json:"offer_counter"`
	CollectionFormat []schemaFormat   `json:"collection_format"`
	SupportedTokens  []supportedToken `json:"supported_tokens"`
}

type supportedToken struct {
	TokenContract string `json:"token_contract"`
	TokenSymbol   string `json:"token_symbol"`
}

type tokenConfigsRow struct {
	Standard string `json:"standard"`
	Version  string `json:"version"`
}

type logMintAction struct {
	AssetId          uint64 `json:"asset_id"`
	AuthorizedMinter string `json:"authorized_minter"`
	CollectionName   string `json:"collection_name"`
	SchemaName       string `json:"schema_name"`
	TemplateId       int64  `json:"template_id"`
	NewAssetOwner    string `json:"new_asset_owner"`
}

type logTransferAction struct {
	CollectionName string   `json:"collection_name"`
	From           string   `json:"from"`
	To             string   `json:"to"`
	AssetIds       []uint64 `json:"asset_ids"`
	Memo           string   `json:"memo"`
}

type logBurnAction struct {
	AssetOwner     string   `json:"asset_owner"`
	AssetId        uint64   `json:"asset_id"`
	CollectionName string   `json:"collection_name"`
	SchemaName     string   `json:"schema_name"`
	TemplateId     int64    `json:"template_id"`
	BackedTokens   []string `json:"backed_tokens"`
}

type logBackAssetAction struct {
	AssetOwner  string `json:"asset_owner"`
	AssetId     uint64 `json:"asset_id"`
	BackedToken string `json:"backed_token"`
}

type logSetDataAction struct {
	AssetOwner string `json:"asset_owner"`
	AssetId    uint64 `json:"asset_id"`
}

type logNewOfferAction struct {
	OfferId           uint64   `json:"offer_id"`
	Sender            string   `json:"sender"`
	Recipient         string   `json:"recipient"`
	SenderAssetIds    []uint64 `json:"sender_asset_ids"`
	RecipientAssetIds []uint64 `json:"recipient_asset_ids"`
	Memo              string   `json:"memo"`
}

type offerIdAction struct {
	OfferId uint64 `json:"offer_id"`
}
