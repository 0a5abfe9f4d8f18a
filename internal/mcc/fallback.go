package mcc

// Category codes used by program policies.
const (
	CategoryOther = "OTHER"
)

// fallbackCategories maps merchant codes to semantic categories.
var fallbackCategories = map[string]string{
	// Food and grocery
	"5411": "GROCERY",
	"5422": "MEAT_MARKETS",
	"5441": "CANDY_STORES",
	"5451": "DAIRY_STORES",
	"5462": "BAKERIES",
	"5499": "FOOD_STORES",

	// Restaurants
	"5811": "CATERERS",
	"5812": "RESTAURANTS",
	"5813": "ALCOHOL",
	"5814": "FAST_FOOD",

	// Entertainment
	"7832": "MOVIES",
	"7841": "VIDEO_RENTAL",
	"7911": "DANCE",
	"7922": "THEATER",
	"7929": "ENTERTAINMENT",
	"7932": "BILLIARDS",
	"7933": "BOWLING",
	"7941": "SPORTS",
	"7991": "TOURIST",
	"7992": "GOLF",
	"7993": "ARCADE",
	"7994": "VIDEO_ARCADE",
	"7995": "GAMBLING",
	"7996": "AMUSEMENT",
	"7997": "CLUBS",
	"7998": "AQUARIUM",
	"7999": "RECREATION",

	// Restricted venues
	"5921": "LIQUOR",
	"5993": "TOBACCO",
	"5122": "DRUGS_SUNDRIES",
	"7273": "DATING",
	"7297": "MASSAGE",
	"7800": "LOTTERY",
	"7801": "CASINO",
	"7802": "RACING",
	"4411": "CRUISE_LINES",
	"8999": "PROFESSIONAL_SERVICES",

	// Cash
	"6010": "CASH",
	"6011": "ATM",

	// Education
	"8211": "SCHOOLS",
	"8220": "COLLEGES",
	"8241": "CORRESPONDENCE",
	"8244": "BUSINESS_SCHOOL",
	"8249": "VOCATIONAL",
	"8299": "EDUCATION",
	"8351": "CHILD_CARE",
	"5111": "STATIONERY",
	"7372": "COMPUTER_SERVICES",

	// Healthcare
	"8011": "DOCTORS",
	"8021": "DENTISTS",
	"8031": "OSTEOPATHS",
	"8041": "CHIROPRACTORS",
	"8042": "OPTOMETRISTS",
	"8043": "OPTICIANS",
	"8049": "HEALTHCARE",
	"8050": "NURSING",
	"8062": "HOSPITALS",
	"8071": "MEDICAL_LABS",
	"8099": "MEDICAL_SERVICES",

	// Transportation and utilities
	"4111": "TRANSIT",
	"4112": "RAIL",
	"4121": "TAXI",
	"4131": "BUS",
	"4784": "TOLLS",
	"4900": "UTILITIES",
	"5541": "FUEL",
	"5542": "FUEL",
	"7523": "PARKING",

	// Retail
	"5200": "HOME_SUPPLY",
	"5300": "WHOLESALE",
	"5309": "DUTY_FREE",
	"5310": "DISCOUNT",
	"5311": "DEPARTMENT",
	"5331": "VARIETY",
	"5399": "MERCHANDISE",
	"5611": "CLOTHING_MENS",
	"5621": "CLOTHING_WOMENS",
	"5631": "ACCESSORIES",
	"5641": "CLOTHING_CHILDREN",
	"5651": "CLOTHING_FAMILY",
	"5655": "SPORTS_APPAREL",
	"5661": "SHOES",
	"5681": "FURRIERS",
	"5691": "CLOTHING",
	"5697": "TAILORS",
	"5698": "WIGS",
	"5699": "APPAREL",
	"5712": "FURNITURE",
	"5713": "FLOORING",
	"5714": "DRAPERY",
	"5715": "ALCOHOL_STORES",
	"5718": "FIREPLACES",
	"5719": "SPECIALTY",
	"5722": "APPLIANCES",
	"5732": "ELECTRONICS",
	"5733": "MUSIC",
	"5734": "SOFTWARE",
	"5735": "RECORDS",
	"5912": "PHARMACY",
	"5940": "BICYCLES",
	"5941": "SPORTING_GOODS",
	"5942": "BOOKS",
	"5943": "OFFICE_SUPPLIES",
	"5944": "JEWELRY",
	"5945": "TOYS",
	"5946": "CAMERAS",
	"5947": "GIFTS",
	"5948": "LUGGAGE",
	"5949": "SEWING",
	"5950": "GLASS",
	"5960": "DIRECT_MARKETING",
	"5962": "TELEMARKETING",
	"5963": "DOOR_TO_DOOR",
	"5964": "CATALOG",
	"5965": "CATALOG_COMBO",
	"5966": "OUTBOUND",
	"5967": "INBOUND",
	"5968": "SUBSCRIPTION",
	"5969": "DIRECT_OTHER",
	"5970": "ARTISTS",
	"5971": "ART_DEALERS",
	"5972": "STAMPS",
	"5973": "RELIGIOUS",
	"5975": "HEARING_AIDS",
	"5976": "ORTHOPEDIC",
	"5977": "COSMETICS",
	"5978": "TYPEWRITERS",
	"5983": "FUEL_OIL",
	"5992": "FLORISTS",
	"5994": "NEWS",
	"5995": "PET",
	"5996": "POOLS",
	"5997": "RAZORS",
	"5998": "TENTS",
	"5999": "MISCELLANEOUS",

	// Services
	"7210": "LAUNDRY",
	"7211": "LAUNDRY_FAMILY",
	"7216": "DRY_CLEANERS",
	"7217": "CARPET",
	"7221": "PHOTO",
	"7230": "BEAUTY",
	"7251": "SHOE_REPAIR",
	"7261": "FUNERAL",
	"7276": "TAX_PREP",
	"7277": "COUNSELING",
	"7278": "BUYING",
	"7296": "RENTALS",
	"7298": "HEALTH_SPA",
	"7299": "PERSONAL_SERVICES",
}

var fallbackDescriptions = map[string]string{
	"4111": "Local and Suburban Commuter Passenger Transportation",
	"4112": "Passenger Railways",
	"4121": "Taxicabs and Limousines",
	"4131": "Bus Lines",
	"4411": "Cruise Lines",
	"4784": "Tolls and Bridge Fees",
	"4900": "Utilities - Electric, Gas, Water, Sanitary",
	"5111": "Stationery, Office Supplies, Printing and Writing Paper",
	"5122": "Drugs, Drug Proprietaries, and Druggist Sundries",
	"5411": "Grocery Stores, Supermarkets",
	"5422": "Freezer and Meat Provisioners",
	"5441": "Candy, Nut, and Confectionery Stores",
	"5451": "Dairy Products Stores",
	"5462": "Bakeries",
	"5499": "Miscellaneous Food Stores",
	"5541": "Service Stations",
	"5542": "Automated Fuel Dispensers",
	"5734": "Computer Software Stores",
	"5735": "Record Stores",
	"5811": "Caterers",
	"5812": "Eating Places, Restaurants",
	"5813": "Drinking Places (Alcoholic Beverages)",
	"5814": "Fast Food Restaurants",
	"5912": "Drug Stores and Pharmacies",
	"5921": "Package Stores-Beer, Wine, and Liquor",
	"5942": "Book Stores",
	"5943": "Stationery, Office, and School Supply Stores",
	"5945": "Hobby, Toy, and Game Shops",
	"5947": "Gift, Card, Novelty, and Souvenir Shops",
	"5976": "Orthopedic Goods - Prosthetic Devices",
	"5993": "Cigar Stores and Stands",
	"6010": "Manual Cash Disbursements",
	"6011": "ATMs",
	"7273": "Dating Services",
	"7297": "Massage Parlors",
	"7299": "Miscellaneous Personal Services",
	"7372": "Computer Programming, Data Processing",
	"7523": "Parking Lots and Garages",
	"7800": "Government-Owned Lotteries",
	"7801": "Government-Licensed Casinos",
	"7802": "Government-Licensed Horse/Dog Racing",
	"7841": "Video Tape Rental Stores",
	"7911": "Dance Halls, Studios, and Schools",
	"7922": "Theatrical Producers and Ticket Agencies",
	"7929": "Bands, Orchestras, and Miscellaneous Entertainers",
	"7932": "Billiard and Pool Establishments",
	"7933": "Bowling Alleys",
	"7941": "Athletic Fields, Commercial Sports",
	"7991": "Tourist Attractions and Exhibits",
	"7992": "Public Golf Courses",
	"7993": "Video Amusement Game Supplies",
	"7994": "Video Game Arcades",
	"7995": "Betting/Casino Gambling",
	"7996": "Amusement Parks, Carnivals, Circuses",
	"7997": "Membership Clubs",
	"7998": "Aquariums, Seaquariums, Dolphinariums",
	"7999": "Recreation Services",
	"8011": "Doctors and Physicians",
	"8021": "Dentists and Orthodontists",
	"8031": "Osteopaths",
	"8041": "Chiropractors",
	"8042": "Optometrists and Ophthalmologists",
	"8043": "Opticians and Eyeglasses",
	"8049": "Podiatrists and Chiropodists",
	"8050": "Nursing and Personal Care Facilities",
	"8062": "Hospitals",
	"8071": "Medical and Dental Laboratories",
	"8099": "Medical Services and Health Practitioners",
	"8211": "Elementary and Secondary Schools",
	"8220": "Colleges, Universities",
	"8241": "Correspondence Schools",
	"8244": "Business and Secretarial Schools",
	"8249": "Trade and Vocational Schools",
	"8299": "Schools and Educational Services",
	"8351": "Child Care Services",
	"8999": "Professional Services",
}
