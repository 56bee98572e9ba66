package validators

import "go.mongodb.org/mongo-driver/bson"

var RoomTypeValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"hotel_id", "name", "max_adults", "max_occupancy", "active"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":                bson.M{"bsonType": "string"},
			"hotel_id":           bson.M{"bsonType": "string"},
			"name":               bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
			"max_adults":         bson.M{"bsonType": []string{"int", "long"}, "minimum": 1},
			"max_children":       bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"max_occupancy":      bson.M{"bsonType": []string{"int", "long"}, "minimum": 1},
			"extra_adult_charge": bson.M{"bsonType": "decimal"},
			"extra_child_charge": bson.M{"bsonType": "decimal"},
			"active":             bson.M{"bsonType": "bool"},
		},
	},
}

var RoomAvailabilityValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"room_type_id",
			"date",
			"available_rooms",
			"blocked_rooms",
			"price_per_night",
			"is_available",
			"min_stay_nights",
			"version",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id":          bson.M{"bsonType": "string"},
			"room_type_id": bson.M{"bsonType": "string"},
			"date":         bson.M{"bsonType": "date"},

			"available_rooms": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"blocked_rooms": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"price_per_night":     bson.M{"bsonType": "decimal"},
			"weekend_surcharge":   bson.M{"bsonType": "decimal"},
			"seasonal_surcharge":  bson.M{"bsonType": "decimal"},
			"discount_percentage": bson.M{"bsonType": "decimal"},
			"tax_percentage":      bson.M{"bsonType": "decimal"},
			"is_available":        bson.M{"bsonType": "bool"},

			"min_stay_nights": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"version": bson.M{"bsonType": []string{"int", "long"}},
		},
	},
}

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"room_type_id",
			"check_in",
			"check_out",
			"total_nights",
			"total_rooms",
			"final_total",
			"currency",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id":          bson.M{"bsonType": "string"},
			"room_type_id": bson.M{"bsonType": "string"},
			"check_in":     bson.M{"bsonType": "date"},
			"check_out":    bson.M{"bsonType": "date"},
			"total_nights": bson.M{"bsonType": []string{"int", "long"}, "minimum": 1},
			"total_rooms":  bson.M{"bsonType": []string{"int", "long"}, "minimum": 1},
			"subtotal":     bson.M{"bsonType": "decimal"},
			"discount":     bson.M{"bsonType": "decimal"},
			"final_total":  bson.M{"bsonType": "decimal"},
			"currency":     bson.M{"bsonType": "string", "pattern": "^[A-Z]{3}$"},

			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"confirmed"},
			},

			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
