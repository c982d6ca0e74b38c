package dbtypes

type OfferState uint8

const (
	OfferStatePending  OfferState = 0
	OfferStateInvalid  OfferState = 1
	OfferStateUnknown  OfferState = 2
	OfferStateAccepted OfferState = 3
	OfferStateDeclined OfferState = 4
	OfferStateCanceled OfferState = 5
)

type SaleState uint8

const (
	SaleStateWaiting  SaleState = 0
	SaleStateListed   SaleState = 1
	SaleStateCanceled SaleState = 2
	SaleStateSold     SaleState = 3
	// SaleStateInvalid is derived by the query surface from the backing
	// offer's state; it is never written to the sales table.
	SaleStateInvalid SaleState = 4
)

type AuctionState uint8

const (
	AuctionStateWaiting  AuctionState = 0
	AuctionStateListed   AuctionState = 1
	AuctionStateCanceled AuctionState = 2
	// AuctionStateSold and AuctionStateInvalid are derived states: a listed
	// auction past its end time counts as sold when it has a buyer.
	AuctionStateSold    AuctionState = 3
	AuctionStateInvalid AuctionState = 4
)

type BuyofferState uint8

const (
	BuyofferStatePending  BuyofferState = 0
	BuyofferStateDeclined BuyofferState = 1
	BuyofferStateCanceled BuyofferState = 2
	BuyofferStateAccepted BuyofferState = 3
)
