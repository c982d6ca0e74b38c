package atomicmarket

// Typed views of the ABI-decoded atomicmarket and delphioracle payloads.

type saleRow struct {
	SaleId           uint64   `json:"sale_id"`
	Seller           string   `json:"seller"`
	AssetIds         []uint64 `json:"asset_ids"`
	OfferId          int64    `json:"offer_id"`
	ListingPrice     string   `json:"listing_price"`
	SettlementSymbol string   `json:"settlement_symbol"`
	MakerMarketplace string   `json:"maker_marketplace"`
	CollectionName   string   `json:"collection_name"`
	CollectionFee    float64  `json:"collection_fee"`
}

type auctionRow struct {
	AuctionId         uint64   `json:"auction_id"`
	Seller            string   `json:"seller"`
	AssetIds          []uint64 `json:"asset_ids"`
	EndTime           int64    `json:"end_time"`
	AssetsTransferred bool     `json:"assets_transferred"`
	CurrentBid        string   `json:"current_bid"`
	CurrentBidder     string   `json:"current_bidder"`
	ClaimedBySeller   bool     `json:"claimed_by_seller"`
	ClaimedByBuyer    bool     `json:"claimed_by_buyer"`
	MakerMarketplace  string   `json:"maker_marketplace"`
	TakerMarketplace  string   `json:"taker_marketplace"`
	CollectionName    string   `json:"collection_name"`
	CollectionFee     float64  `json:"collection_fee"`
}

type buyofferRow struct {
	BuyofferId       uint64   `json:"buyoffer_id"`
	Buyer            string   `json:"buyer"`
	Recipient        string   `json:"recipient"`
	Price            string   `json:"price"`
	AssetIds         []uint64 `json:"asset_ids"`
	Memo             string   `json:"memo"`
	MakerMarketplace string   `json:"maker_marketplace"`
	CollectionName   string   `json:"collection_name"`
	CollectionFee    float64  `json:"collection_fee"`
}

type marketplaceRow struct {
	MarketplaceName string `json:"marketplace_name"`
	Creator         string `json:"creator"`
}

type symbolPair struct {
	ListingSymbol    string `json:"listing_symbol"`
	SettlementSymbol string `json:"settlement_symbol"`
	DelphiPairName   string `json:"delphi_pair_name"`
	InvertDelphiPair bool   `json:"invert_delphi_pair"`
}

type supportedToken struct {
	TokenContract string `json:"token_contract"`
	TokenSymbol   string `json:"token_symbol"`
}

type marketConfigRow struct {
	Version                string           `json:"version"`
	MakerMarketFee         float64          `json:"maker_market_fee"`
	TakerMarketFee         float64          `json:"taker_market_fee"`
	MinimumBidIncrease     float64          `json:"minimum_bid_increase"`
	MinimumAuctionDuration int64            `json:"minimum_auction_duration"`
	MaximumAuctionDuration int64            `json:"maximum_auction_duration"`
	AuctionResetDuration   int64            `json:"auction_reset_duration"`
	SupportedTokens        []supportedToken `json:"supported_tokens"`
	SupportedSymbolPairs   []symbolPair     `json:"supported_symbol_pairs"`
}

type delphiDatapointRow struct {
	Id        uint64 `json:"id"`
	Owner     string `json:"owner"`
	Value     int64  `json:"value"`
	Median    int64  `json:"median"`
	Timestamp string `json:"timestamp"`
}

type delphiPairRow struct {
	Name            string `json:"name"`
	Active          bool   `json:"active"`
	QuotedPrecision uint8  `json:"quoted_precision"`
}

type logNewSaleAction struct {
	SaleId           uint64   `json:"sale_id"`
	Seller           string   `json:"seller"`
	AssetIds         []uint64 `json:"asset_ids"`
	ListingPrice     string   `json:"listing_price"`
	SettlementSymbol string   `json:"settlement_symbol"`
	MakerMarketplace string   `json:"maker_marketplace"`
	CollectionName   string   `json:"collection_name"`
	CollectionFee    float64  `json:"collection_fee"`
}

type logSaleStartAction struct {
	SaleId  uint64 `json:"sale_id"`
	OfferId uint64 `json:"offer_id"`
}

type saleIdAction struct {
	SaleId uint64 `json:"sale_id"`
}

type purchaseSaleAction struct {
	Buyer                string `json:"buyer"`
	SaleId               uint64 `json:"sale_id"`
	IntendedDelphiMedian uint64 `json:"intended_delphi_median"`
	TakerMarketplace     string `json:"taker_marketplace"`
}

type logNewAuctionAction struct {
	AuctionId        uint64   `json:"auction_id"`
	Seller           string   `json:"seller"`
	AssetIds         []uint64 `json:"asset_ids"`
	StartingBid      string   `json:"starting_bid"`
	Duration         uint64   `json:"duration"`
	EndTime          int64    `json:"end_time"`
	MakerMarketplace string   `json:"maker_marketplace"`
	CollectionName   string   `json:"collection_name"`
	CollectionFee    float64  `json:"collection_fee"`
}

type auctionIdAction struct {
	AuctionId uint64 `json:"auction_id"`
}

type auctionBidAction struct {
	Bidder           string `json:"bidder"`
	AuctionId        uint64 `json:"auction_id"`
	Bid              string `json:"bid"`
	TakerMarketplace string `json:"taker_marketplace"`
}

type logNewBuyofferAction struct {
	BuyofferId       uint64   `json:"buyoffer_id"`
	Buyer            string   `json:"buyer"`
	Recipient        string   `json:"recipient"`
	Price            string   `json:"price"`
	AssetIds         []uint64 `json:"asset_ids"`
	Memo             string   `json:"memo"`
	MakerMarketplace string   `json:"maker_marketplace"`
	CollectionName   string   `json:"collection_name"`
	CollectionFee    float64  `json:"collection_fee"`
}

type buyofferIdAction struct {
	BuyofferId uint64 `json:"buyoffer_id"`
}

type declineBuyofferAction struct {
	BuyofferId  uint64 `json:"buyoffer_id"`
	DeclineMemo string `json:"decline_memo"`
}

type offerIdAction struct {
	OfferId uint64 `json:"offer_id"`
}
