package validators

import "go.mongodb.org/mongo-driver/bson"

// minutes since midnight
var timeOfDay = bson.M{
	"bsonType": []string{"int", "long"},
	"minimum":  0,
	"maximum":  1439,
}

var ScheduleClaimValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"aircraft_id",
			"date",
			"departure_time",
			"arrival_time",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id":         bson.M{"bsonType": "string"},
			"aircraft_id": bson.M{"bsonType": "string", "minLength": 1, "maxLength": 64},

			"date": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"departure_time": timeOfDay,
			"arrival_time":   timeOfDay,

			"status": bson.M{
				"bsonType": "object",
				"required": []string{"status"},
				"properties": bson.M{
					"status": bson.M{
						"bsonType": "string",
						"enum": []string{
							"scheduled",
							"delayed",
							"rescheduled",
							"cancelled",
							"completed",
						},
					},
					"delay_minutes":  bson.M{"bsonType": []string{"int", "long"}, "minimum": 1},
					"rescheduled_to": bson.M{"bsonType": "date"},
				},
			},

			"created_at": bson.M{"bsonType": "date"},
		},
	},
}

var FlightLegValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"route_id",
			"stop_order",
			"origin",
			"destination",
			"departure_time",
			"arrival_time",
			"duration_minutes",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id":      bson.M{"bsonType": "string"},
			"route_id": bson.M{"bsonType": "string", "minLength": 1},

			"stop_order": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"origin":      bson.M{"bsonType": "string", "pattern": "^[A-Z]{3}$"},
			"destination": bson.M{"bsonType": "string", "pattern": "^[A-Z]{3}$"},

			"departure_time": timeOfDay,
			"arrival_time":   timeOfDay,

			"duration_minutes": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},
		},
	},
}

var AircraftValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"active", "updated_at"},

		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string", "minLength": 1, "maxLength": 64},
			"active":     bson.M{"bsonType": "bool"},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}
