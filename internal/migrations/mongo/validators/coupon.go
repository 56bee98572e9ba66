package validators

import "go.mongodb.org/mongo-driver/bson"

var CouponValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"code",
			"discount_type",
			"discount_value",
			"max_uses",
			"used_count",
			"valid_from",
			"valid_to",
			"active",
			"version",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{"bsonType": "string"},

			"code": bson.M{
				"bsonType": "string",
				"pattern":  "^[A-Z0-9_-]{3,20}$",
			},

			"discount_type": bson.M{
				"bsonType": "string",
				"enum":     []string{"percent", "fixed"},
			},

			"discount_value": bson.M{"bsonType": "decimal"},
			"min_spend":      bson.M{"bsonType": "decimal"},

			"max_uses": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"used_count": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"valid_from": bson.M{"bsonType": "date"},
			"valid_to":   bson.M{"bsonType": "date"},
			"active":     bson.M{"bsonType": "bool"},
			"version":    bson.M{"bsonType": "long"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}

var CouponUsageValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"coupon_id", "coupon_code", "user_id", "used_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":              bson.M{"bsonType": "string"},
			"coupon_id":        bson.M{"bsonType": "string"},
			"coupon_code":      bson.M{"bsonType": "string"},
			"user_id":          bson.M{"bsonType": "string", "minLength": 1},
			"original_total":   bson.M{"bsonType": "decimal"},
			"discount_applied": bson.M{"bsonType": "decimal"},
			"discounted_total": bson.M{"bsonType": "decimal"},
			"used_at":          bson.M{"bsonType": "date"},
		},
	},
}
