package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// DomainListing is a domain name up for auction.
type DomainListing struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Status        string             `bson:"status" json:"status"` // e.g. "active", "ending", "sold"
	HighestBid    float64            `bson:"highestBid" json:"highestBid"`
	Currency      string             `bson:"currency" json:"currency"`
	TimeRemaining string             `bson:"timeRemaining" json:"timeRemaining"`
}
