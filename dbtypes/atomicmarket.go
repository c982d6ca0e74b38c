package dbtypes

type Sale struct {
	MarketContract   string  `db:"market_contract"`
	SaleId           uint64  `db:"sale_id"`
	AssetsContract   string  `db:"assets_contract"`
	OfferId          *uint64 `db:"offer_id"`
	Seller           string  `db:"seller"`
	Buyer            *string `db:"buyer"`
	ListingPrice     uint64  `db:"listing_price"`
	ListingSymbol    string  `db:"listing_symbol"`
	SettlementSymbol string  `db:"settlement_symbol"`
	CollectionName   string  `db:"collection_name"`
	CollectionFee    float64 `db:"collection_fee"`
	Maker            string  `db:"maker_marketplace"`
	Taker            *string `db:"taker_marketplace"`
	State            uint8   `db:"state"`
	UpdatedAtBlock   uint64  `db:"updated_at_block"`
	CreatedAtBlock   uint64  `db:"created_at_block"`
	CreatedAtTime    int64   `db:"created_at_time"`
}

type Auction struct {
	MarketContract  string  `db:"market_contract"`
	AuctionId       uint64  `db:"auction_id"`
	AssetsContract  string  `db:"assets_contract"`
	Seller          string  `db:"seller"`
	Buyer           *string `db:"buyer"`
	Price           uint64  `db:"price"`
	TokenSymbol     string  `db:"token_symbol"`
	CollectionName  string  `db:"collection_name"`
	CollectionFee   float64 `db:"collection_fee"`
	ClaimedByBuyer  bool    `db:"claimed_by_buyer"`
	ClaimedBySeller bool    `db:"claimed_by_seller"`
	Maker           string  `db:"maker_marketplace"`
	Taker           *string `db:"taker_marketplace"`
	State           uint8   `db:"state"`
	EndTime         int64   `db:"end_time"`
	UpdatedAtBlock  uint64  `db:"updated_at_block"`
	CreatedAtBlock  uint64  `db:"created_at_block"`
	CreatedAtTime   int64   `db:"created_at_time"`
}

type AuctionAsset struct {
	MarketContract string `db:"market_contract"`
	AuctionId      uint64 `db:"auction_id"`
	AssetsContract string `db:"assets_contract"`
	AssetId        uint64 `db:"asset_id"`
}

type AuctionBid struct {
	MarketContract string `db:"market_contract"`
	AuctionId      uint64 `db:"auction_id"`
	BidNumber      uint64 `db:"bid_number"`
	Account        string `db:"account"`
	Amount         uint64 `db:"amount"`
	Txid           []byte `db:"txid"`
	CreatedAtBlock uint64 `db:"created_at_block"`
	CreatedAtTime  int64  `db:"created_at_time"`
}

type Buyoffer struct {
	MarketContract string  `db:"market_contract"`
	BuyofferId     uint64  `db:"buyoffer_id"`
	AssetsContract string  `db:"assets_contract"`
	Buyer          string  `db:"buyer"`
	Seller         string  `db:"seller"`
	Price          uint64  `db:"price"`
	TokenSymbol    string  `db:"token_symbol"`
	CollectionName string  `db:"collection_name"`
	CollectionFee  float64 `db:"collection_fee"`
	Memo           string  `db:"memo"`
	DeclineMemo    *string `db:"decline_memo"`
	Maker          string  `db:"maker_marketplace"`
	Taker          *string `db:"taker_marketplace"`
	State          uint8   `db:"state"`
	UpdatedAtBlock uint64  `db:"updated_at_block"`
	CreatedAtBlock uint64  `db:"created_at_block"`
	CreatedAtTime  int64   `db:"created_at_time"`
}

type BuyofferAsset struct {
	MarketContract string `db:"market_contract"`
	BuyofferId     uint64 `db:"buyoffer_id"`
	AssetsContract string `db:"assets_contract"`
	AssetId        uint64 `db:"asset_id"`
}

type Marketplace struct {
	MarketContract  string `db:"market_contract"`
	MarketplaceName string `db:"marketplace_name"`
	Creator         string `db:"creator"`
	CreatedAtBlock  uint64 `db:"created_at_block"`
	CreatedAtTime   int64  `db:"created_at_time"`
}

type MarketToken struct {
	MarketContract string `db:"market_contract"`
	TokenContract  string `db:"token_contract"`
	TokenSymbol    string `db:"token_symbol"`
	TokenPrecision uint8  `db:"token_precision"`
}

type SymbolPair struct {
	MarketContract   string `db:"market_contract"`
	ListingSymbol    string `db:"listing_symbol"`
	SettlementSymbol string `db:"settlement_symbol"`
	DelphiPairName   string `db:"delphi_pair_name"`
	InvertDelphiPair bool   `db:"invert_delphi_pair"`
}

type DelphiPrice struct {
	Contract        string `db:"contract"`
	DelphiPairName  string `db:"delphi_pair_name"`
	Median          uint64 `db:"median"`
	MedianPrecision uint8  `db:"median_precision"`
	UpdatedAtBlock  uint64 `db:"updated_at_block"`
	UpdatedAtTime   int64  `db:"updated_at_time"`
}
